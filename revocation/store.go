package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrEmptyKey is returned when an operation receives an empty key.
	ErrEmptyKey = errors.New("revocation: key is required")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("revocation: backend unavailable")
)

// Store is the shared set of revoked token keys.
//
// Implementations must make an Insert visible to every Contains that starts
// after Insert returns, from any goroutine.
type Store interface {
	// Contains reports whether key is present and not yet compacted.
	Contains(ctx context.Context, key string) (bool, error)
	// Insert records key until expiresAt. Inserting an existing key overwrites
	// its expiry.
	Insert(ctx context.Context, key string, expiresAt time.Time) error
	// Sweep removes every entry whose expiry is at or before now and returns
	// how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Key derives the stored key for a raw token string. Raw tokens are bearer
// credentials, so only their SHA-256 digest is kept.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
