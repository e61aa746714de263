package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/sessiongate/sessiongate"
	"github.com/sessiongate/sessiongate/credstore"
	"github.com/sessiongate/sessiongate/credstore/memory"
	"github.com/sessiongate/sessiongate/credstore/postgres"
	"github.com/sessiongate/sessiongate/handler"
	"github.com/sessiongate/sessiongate/metrics/export/prometheus"
	"github.com/sessiongate/sessiongate/password"
	"github.com/sessiongate/sessiongate/revocation"
	"github.com/spf13/cobra"
)

const pingTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)

			log := newLogger(cfg.LogVerbosity)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			return a.run(ctx)
		},
	}
	flags.register(cmd)
	return cmd
}

// app is the assembled service: engine, stores, and HTTP server.
type app struct {
	cfg     serveConfig
	log     logr.Logger
	engine  *sessiongate.Engine
	handler http.Handler
	closers []func() error
}

func newApp(ctx context.Context, cfg serveConfig, log logr.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	secret, err := cfg.resolveSecret()
	if err != nil {
		return nil, err
	}

	engineCfg := sessiongate.DefaultConfig()
	engineCfg.Secret = secret
	engineCfg.TokenTTL = cfg.TokenTTL
	engineCfg.Issuer = cfg.Issuer
	engineCfg.Logger = log
	engineCfg.Metrics.Enabled = cfg.Metrics
	engineCfg.Audit.Enabled = cfg.AuditLog
	if cfg.AuditLog {
		engineCfg.Audit.Sink = sessiongate.NewLogrSink(log, 0)
	}

	if engineCfg.Credentials, err = a.openCredentials(ctx, engineCfg.Password); err != nil {
		return nil, err
	}
	if engineCfg.Revocations, err = a.openRevocations(ctx); err != nil {
		return nil, err
	}

	engine, err := sessiongate.New(engineCfg)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	a.closers = append(a.closers, func() error {
		engine.Close()
		return nil
	})

	opts := []handler.Option{handler.WithLogger(log)}
	if cfg.Metrics {
		opts = append(opts, handler.WithMetrics(prometheus.NewExporter(engine).Handler()))
	}
	a.handler = handler.New(engine, opts...)
	return a, nil
}

func (a *app) openCredentials(ctx context.Context, pwCfg password.Config) (credstore.Store, error) {
	if a.cfg.DatabaseURL == "" {
		store := memory.New()
		if a.cfg.BootstrapUser != "" {
			hasher, err := password.NewArgon2(pwCfg)
			if err != nil {
				return nil, err
			}
			hash, err := hasher.Hash(a.cfg.BootstrapPassword)
			if err != nil {
				return nil, fmt.Errorf("hash bootstrap password: %w", err)
			}
			if _, err := store.CreateCredential(ctx, credstore.Credential{
				Identifier:   a.cfg.BootstrapUser,
				PasswordHash: hash,
			}); err != nil {
				return nil, fmt.Errorf("create bootstrap user: %w", err)
			}
		}
		a.log.Info("using in-memory credential store", "bootstrapUser", a.cfg.BootstrapUser != "")
		return store, nil
	}

	db, err := openDatabase(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	store, err := postgres.New(ctx, db)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	a.log.Info("using postgres credential store")
	return store, nil
}

func (a *app) openRevocations(ctx context.Context) (revocation.Store, error) {
	if a.cfg.RedisAddr == "" {
		a.log.Info("using in-memory revocation store")
		return revocation.NewMemoryStore(), nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{a.cfg.RedisAddr},
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closers = append(a.closers, client.Close)

	store := revocation.NewRedisStore(client, revocation.WithRedisPrefix(a.cfg.RedisPrefix))
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	rtt, err := store.Ping(pingCtx)
	if err != nil {
		return nil, fmt.Errorf("connect revocation store: %w", err)
	}
	a.log.Info("using redis revocation store", "address", a.cfg.RedisAddr, "rtt", rtt.String())
	return store, nil
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open(postgres.DriverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres database: %w", err)
	}
	return db, nil
}

// run serves until ctx is cancelled, then shuts down within ShutdownTimeout.
func (a *app) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.sweepLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", a.cfg.Addr, "config", a.cfg.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func (a *app) sweepLoop(ctx context.Context) {
	if a.cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.engine.SweepExpired(ctx)
			if err != nil {
				a.log.Error(err, "revocation sweep failed")
				continue
			}
			if removed > 0 {
				a.log.V(1).Info("revocation sweep", "removed", removed)
			}
		}
	}
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error(err, "close resource")
		}
	}
	a.closers = nil
}
