package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

const envPrefix = "sessiongate"

// serveConfig is loaded from SESSIONGATE_* variables.
type serveConfig struct {
	Addr              string        `envconfig:"ADDR" default:":8080"`
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	JWTSecretFile     string        `envconfig:"JWT_SECRET_FILE"`
	TokenTTL          time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	Issuer            string        `envconfig:"ISSUER"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB"`
	RedisPrefix       string        `envconfig:"REDIS_PREFIX" default:"sg:revoked"`
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	Metrics           bool          `envconfig:"METRICS" default:"true"`
	AuditLog          bool          `envconfig:"AUDIT_LOG"`
	LogVerbosity      int           `envconfig:"LOG_VERBOSITY"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	BootstrapUser     string        `envconfig:"BOOTSTRAP_USER"`
	BootstrapPassword string        `envconfig:"BOOTSTRAP_PASSWORD"`
}

// String omits every credential.
func (c serveConfig) String() string {
	return fmt.Sprintf("addr=%s ttl=%s issuer=%q postgres=%t redis=%t metrics=%t audit=%t",
		c.Addr, c.TokenTTL, c.Issuer, c.DatabaseURL != "", c.RedisAddr != "", c.Metrics, c.AuditLog)
}

type dbConfig struct {
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	MigrationsTable string `envconfig:"MIGRATIONS_TABLE" default:"sessiongate_schema_migrations"`
	LogVerbosity    int    `envconfig:"LOG_VERBOSITY"`
}

func loadServeConfig() (serveConfig, error) {
	var c serveConfig
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return serveConfig{}, fmt.Errorf("load configuration: %w", err)
	}
	return c, nil
}

func loadDBConfig() (dbConfig, error) {
	var c dbConfig
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return dbConfig{}, fmt.Errorf("load configuration: %w", err)
	}
	return c, nil
}

// resolveSecret returns the signing secret from the file when one is
// configured, otherwise from the environment. Errors never include the value.
func (c serveConfig) resolveSecret() ([]byte, error) {
	if c.JWTSecretFile != "" {
		raw, err := os.ReadFile(c.JWTSecretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		secret := strings.TrimRight(string(raw), "\r\n")
		if secret == "" {
			return nil, errors.New("jwt secret file is empty")
		}
		return []byte(secret), nil
	}
	if c.JWTSecret == "" {
		return nil, errors.New("missing jwt secret: set SESSIONGATE_JWT_SECRET or SESSIONGATE_JWT_SECRET_FILE")
	}
	return []byte(c.JWTSecret), nil
}

// serveFlags holds flag values; only flags the user set override the environment.
type serveFlags struct {
	addr          string
	secretFile    string
	tokenTTL      time.Duration
	issuer        string
	databaseURL   string
	redisAddr     string
	sweepInterval time.Duration
	metrics       bool
	auditLog      bool
	verbosity     int
}

func (f *serveFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.addr, "addr", "", "Listen address. Env: SESSIONGATE_ADDR.")
	fs.StringVar(&f.secretFile, "jwt-secret-file", "", "File holding the signing secret. Env: SESSIONGATE_JWT_SECRET_FILE.")
	fs.DurationVar(&f.tokenTTL, "token-ttl", 0, "Access token lifetime. Env: SESSIONGATE_TOKEN_TTL.")
	fs.StringVar(&f.issuer, "issuer", "", "Issuer claim stamped into and required on tokens. Env: SESSIONGATE_ISSUER.")
	fs.StringVar(&f.databaseURL, "database-url", "", "PostgreSQL URL for the credential store; in-memory when empty. Env: SESSIONGATE_DATABASE_URL.")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the revocation store; in-memory when empty. Env: SESSIONGATE_REDIS_ADDR.")
	fs.DurationVar(&f.sweepInterval, "sweep-interval", 0, "Revocation sweep period; 0 disables the sweeper. Env: SESSIONGATE_SWEEP_INTERVAL.")
	fs.BoolVar(&f.metrics, "metrics", false, "Expose GET /metrics. Env: SESSIONGATE_METRICS.")
	fs.BoolVar(&f.auditLog, "audit-log", false, "Write audit events to the log. Env: SESSIONGATE_AUDIT_LOG.")
	fs.IntVarP(&f.verbosity, "verbose", "v", 0, "Log verbosity. Env: SESSIONGATE_LOG_VERBOSITY.")
}

func (f *serveFlags) apply(cmd *cobra.Command, c *serveConfig) {
	fs := cmd.Flags()
	if fs.Changed("addr") {
		c.Addr = f.addr
	}
	if fs.Changed("jwt-secret-file") {
		c.JWTSecretFile = f.secretFile
	}
	if fs.Changed("token-ttl") {
		c.TokenTTL = f.tokenTTL
	}
	if fs.Changed("issuer") {
		c.Issuer = f.issuer
	}
	if fs.Changed("database-url") {
		c.DatabaseURL = f.databaseURL
	}
	if fs.Changed("redis-addr") {
		c.RedisAddr = f.redisAddr
	}
	if fs.Changed("sweep-interval") {
		c.SweepInterval = f.sweepInterval
	}
	if fs.Changed("metrics") {
		c.Metrics = f.metrics
	}
	if fs.Changed("audit-log") {
		c.AuditLog = f.auditLog
	}
	if fs.Changed("verbose") {
		c.LogVerbosity = f.verbosity
	}
}

func resolveDatabaseURL(flagValue, envValue string) (string, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(envValue); v != "" {
		return v, nil
	}
	return "", errors.New("missing database URL: set --database-url or SESSIONGATE_DATABASE_URL")
}
