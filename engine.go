package sessiongate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/sessiongate/sessiongate/credstore"
	"github.com/sessiongate/sessiongate/jwt"
	"github.com/sessiongate/sessiongate/password"
	"github.com/sessiongate/sessiongate/revocation"
)

// TokenType is the scheme clients present tokens under.
const TokenType = "Bearer"

// Engine issues, verifies and revokes session tokens.
//
// Engine is safe for concurrent use. Its fields are fixed by New; the only
// shared mutable state is the revocation store.
type Engine struct {
	config      Config
	codec       *jwt.Manager
	revocations revocation.Store
	credentials credstore.Store
	hasher      *password.Argon2
	dummyHash   string
	audit       *auditDispatcher
	metrics     *Metrics
	log         logr.Logger
	now         func() time.Time
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// New validates cfg and builds an Engine.
func New(cfg Config) (*Engine, error) {
	cfg = cloneConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec, err := jwt.NewManager(jwt.Config{
		Secret: cfg.Secret,
		Issuer: cfg.Issuer,
		Now:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// Unknown identifiers are verified against this hash so they cost the
	// same as a wrong password.
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("sessiongate: prepare dummy hash: %w", err)
	}

	revocations := cfg.Revocations
	if revocations == nil {
		revocations = revocation.NewMemoryStore()
	}

	e := &Engine{
		config:      cfg,
		codec:       codec,
		revocations: revocations,
		credentials: cfg.Credentials,
		hasher:      hasher,
		dummyHash:   dummyHash,
		audit:       newAuditDispatcher(cfg.Audit),
		metrics:     NewMetrics(cfg.Metrics),
		log:         resolveLogger(cfg.Logger),
		now:         now,
	}
	e.log.Info("engine ready",
		"tokenTTL", cfg.TokenTTL.String(),
		"issuer", cfg.Issuer,
		"revocationStore", fmt.Sprintf("%T", revocations),
		"audit", cfg.Audit.Enabled,
		"metrics", cfg.Metrics.Enabled,
	)
	return e, nil
}

// Close flushes pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Login checks identifier and password against the credential store and
// issues a token valid for Config.TokenTTL.
//
// Every failure to authenticate, including an unknown identifier or an
// unreachable store, returns ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, identifier, pw string) (LoginResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cred, err := e.credentials.LookupCredential(ctx, identifier)
	if err != nil {
		_, _ = e.hasher.Verify(pw, e.dummyHash)
		reason := "unknown_identifier"
		if !errors.Is(err, credstore.ErrNotFound) {
			reason = "store_error"
			e.log.Error(err, "credential lookup failed")
		}
		return LoginResult{}, e.loginFailed(ctx, identifier, "", reason, ErrInvalidCredentials)
	}

	ok, err := e.hasher.Verify(pw, cred.PasswordHash)
	if err != nil {
		e.log.Error(err, "stored password hash unusable", "subject", cred.Subject)
		return LoginResult{}, e.loginFailed(ctx, identifier, cred.Subject, "hash_unusable", ErrInvalidCredentials)
	}
	if !ok {
		return LoginResult{}, e.loginFailed(ctx, identifier, cred.Subject, "password_mismatch", ErrInvalidCredentials)
	}
	if cred.Subject == "" {
		e.log.Error(nil, "credential has no subject", "identifier", identifier)
		return LoginResult{}, e.loginFailed(ctx, identifier, "", "missing_subject", ErrTokenCreation)
	}

	result, err := e.issue(cred.Subject)
	if err != nil {
		e.log.Error(err, "token issuance failed", "subject", cred.Subject)
		return LoginResult{}, e.loginFailed(ctx, identifier, cred.Subject, "token_creation", err)
	}

	if recorder, ok := e.credentials.(credstore.LoginRecorder); ok {
		if err := recorder.RecordLogin(ctx, cred.Subject, e.now()); err != nil {
			e.log.Error(err, "recording last login failed", "subject", cred.Subject)
		}
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, cred.Subject, "", nil, nil)
	e.log.V(1).Info("login succeeded", "subject", cred.Subject)
	return result, nil
}

func (e *Engine) loginFailed(ctx context.Context, identifier, subject, reason string, err error) error {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, subject, "", err, map[string]string{
		"identifier": identifier,
		"reason":     reason,
	})
	e.log.V(1).Info("login rejected", "reason", reason)
	return err
}

func (e *Engine) issue(subject string) (result LoginResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.Inc(MetricPanicRecovered)
			result, err = LoginResult{}, ErrTokenCreation.wrap(fmt.Errorf("panic: %v", r))
		}
	}()

	now := e.now()
	expiresAt := now.Add(e.config.TokenTTL).Unix()
	token, err := e.codec.Issue(jwt.NewClaims(subject, expiresAt, now.Unix()))
	if err != nil {
		return LoginResult{}, ErrTokenCreation.wrap(err)
	}
	return LoginResult{
		Token:     token,
		TokenType: TokenType,
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// Verify returns the claims of token if it is authentic, not revoked and not
// expired. Checks run in that order of precedence: a revoked token reports
// ErrTokenRevoked even when it has also expired.
func (e *Engine) Verify(ctx context.Context, token string) (claims jwt.Claims, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.metrics.Inc(MetricPanicRecovered)
			claims, err = jwt.Claims{}, ErrTokenValidation.wrap(fmt.Errorf("panic: %v", r))
		}
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
		e.recordVerify(ctx, token, claims, err)
	}()

	key := revocation.Key(token)
	revoked, err := e.revocations.Contains(ctx, key)
	if err != nil {
		return jwt.Claims{}, ErrTokenValidation.wrap(err)
	}
	if revoked {
		return jwt.Claims{}, ErrTokenRevoked
	}

	claims, err = e.decode(token)
	if err != nil {
		return jwt.Claims{}, err
	}
	if claims.ExpiredAt(e.now()) {
		return jwt.Claims{}, ErrTokenExpired
	}
	return claims, nil
}

func (e *Engine) recordVerify(ctx context.Context, token string, claims jwt.Claims, err error) {
	if err == nil {
		e.metrics.Inc(MetricVerifySuccess)
		return
	}

	switch {
	case errors.Is(err, ErrTokenRevoked):
		e.metrics.Inc(MetricVerifyRevoked)
	case errors.Is(err, ErrTokenExpired):
		e.metrics.Inc(MetricVerifyExpired)
	case errors.Is(err, ErrInvalidTokenFormat):
		e.metrics.Inc(MetricVerifyMalformed)
	default:
		e.metrics.Inc(MetricVerifyInvalid)
	}

	code := AsError(err).Code
	if errors.Is(err, ErrTokenValidation) {
		e.log.Error(err, "token verification failed", "token", tokenRef(revocation.Key(token)))
	} else {
		e.log.V(1).Info("token rejected", "code", code, "token", tokenRef(revocation.Key(token)))
	}
	e.emitAudit(ctx, auditEventVerifyFailure, false, claims.Subject(), claims.ID(), err, nil)
}

// decode maps codec failures onto engine errors.
func (e *Engine) decode(token string) (jwt.Claims, error) {
	claims, err := e.codec.Decode(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrExpired):
		return jwt.Claims{}, ErrTokenExpired.wrap(err)
	case errors.Is(err, jwt.ErrMalformedToken):
		return jwt.Claims{}, ErrInvalidTokenFormat.wrap(err)
	default:
		return jwt.Claims{}, ErrTokenValidation.wrap(err)
	}
}

// Revoke adds token to the revocation store until its natural expiry, then
// sweeps entries that have already expired. Revoking a token twice succeeds.
//
// Revoke does not consult the revocation store first, so it accepts a token
// Verify would reject as revoked; it still rejects tokens that are malformed,
// forged or expired.
func (e *Engine) Revoke(ctx context.Context, token string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var claims jwt.Claims
	defer func() {
		if r := recover(); r != nil {
			e.metrics.Inc(MetricPanicRecovered)
			err = ErrTokenValidation.wrap(fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			e.metrics.Inc(MetricRevokeFailure)
			e.emitAudit(ctx, auditEventRevokeFailure, false, claims.Subject(), claims.ID(), err, nil)
			e.log.V(1).Info("revoke rejected", "code", AsError(err).Code)
			return
		}
		e.metrics.Inc(MetricRevokeSuccess)
		e.emitAudit(ctx, auditEventRevoke, true, claims.Subject(), claims.ID(), nil, nil)
	}()

	claims, err = e.decode(token)
	if err != nil {
		return err
	}
	if claims.ExpiredAt(e.now()) {
		return ErrTokenExpired
	}

	key := revocation.Key(token)
	if err := e.revocations.Insert(ctx, key, claims.ExpiresTime()); err != nil {
		e.log.Error(err, "revocation insert failed", "token", tokenRef(key))
		return ErrTokenValidation.wrap(err)
	}
	e.log.V(1).Info("token revoked", "subject", claims.Subject(), "token", tokenRef(key))

	if _, err := e.SweepExpired(ctx); err != nil {
		e.log.Error(err, "opportunistic sweep failed")
	}
	return nil
}

// SweepExpired removes revocation entries whose tokens have expired and
// returns how many were removed. It never removes an entry for a token that
// is still live.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := e.revocations.Sweep(ctx, e.now())
	if err != nil {
		return n, fmt.Errorf("sessiongate: sweep revocations: %w", err)
	}
	e.metrics.Add(MetricRevocationsSwept, uint64(n))
	if n > 0 {
		e.log.V(1).Info("swept expired revocations", "count", n)
	}
	return n, nil
}
