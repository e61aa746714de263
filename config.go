package sessiongate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/sessiongate/sessiongate/credstore"
	"github.com/sessiongate/sessiongate/password"
	"github.com/sessiongate/sessiongate/revocation"
)

// MinSecretBytes is the shortest signing secret New accepts.
const MinSecretBytes = 32

// DefaultTokenTTL is the token lifetime used by DefaultConfig.
const DefaultTokenTTL = time.Hour

// ErrInvalidConfig is wrapped by every Config.Validate failure.
var ErrInvalidConfig = errors.New("sessiongate: invalid config")

// Config describes an Engine. Start from DefaultConfig and fill in Secret and
// Credentials.
//
// New copies the Config; later changes to the caller's value have no effect.
type Config struct {
	// Secret is the HS256 signing key.
	Secret []byte
	// TokenTTL is the lifetime stamped into every issued token.
	TokenTTL time.Duration
	// Issuer is stamped into tokens and required on verification when set.
	Issuer string

	// Credentials is consulted by Login.
	Credentials credstore.Store
	// Revocations holds revoked tokens. Nil selects a fresh in-memory store.
	Revocations revocation.Store

	Password password.Config
	Audit    AuditConfig
	Metrics  MetricsConfig

	// Logger receives lifecycle events at V(0) and per-request rejections at
	// V(1). The zero value discards everything.
	Logger logr.Logger
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; dropped events are counted.
	DropIfFull bool
	// Sink receives events. Nil discards them.
	Sink AuditSink
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a Config with every optional field set to its
// default. Secret and Credentials are left empty.
func DefaultConfig() Config {
	return Config{
		TokenTTL: DefaultTokenTTL,
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate reports the first problem that would prevent New from building
// an Engine. Messages never include the secret.
func (c *Config) Validate() error {
	switch {
	case len(c.Secret) == 0:
		return fmt.Errorf("%w: signing secret is required", ErrInvalidConfig)
	case len(c.Secret) < MinSecretBytes:
		return fmt.Errorf("%w: signing secret must be at least %d bytes", ErrInvalidConfig, MinSecretBytes)
	case len(strings.TrimSpace(string(c.Secret))) == 0:
		return fmt.Errorf("%w: signing secret is blank", ErrInvalidConfig)
	case c.TokenTTL <= 0:
		return fmt.Errorf("%w: token TTL must be > 0", ErrInvalidConfig)
	case c.TokenTTL < time.Second:
		return fmt.Errorf("%w: token TTL must be at least one second", ErrInvalidConfig)
	case c.Credentials == nil:
		return fmt.Errorf("%w: credential store is required", ErrInvalidConfig)
	case c.Audit.Enabled && c.Audit.BufferSize <= 0:
		return fmt.Errorf("%w: audit buffer size must be > 0", ErrInvalidConfig)
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Secret = make([]byte, len(cfg.Secret))
	copy(out.Secret, cfg.Secret)
	return out
}
