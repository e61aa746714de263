package credstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no credential exists for an identifier.
	ErrNotFound = errors.New("credstore: credential not found")
	// ErrDuplicate is returned when creating a credential whose identifier is taken.
	ErrDuplicate = errors.New("credstore: identifier already exists")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("credstore: backend unavailable")
)

// Credential is what a store knows about one login identity.
type Credential struct {
	// Subject is stamped into issued tokens as the "sub" claim.
	Subject string
	// Identifier is the login name (an email address for the postgres store).
	Identifier   string
	PasswordHash string
}

// Store looks credentials up by login identifier.
type Store interface {
	LookupCredential(ctx context.Context, identifier string) (Credential, error)
}

// LoginRecorder is implemented by stores that keep last-login bookkeeping.
// The engine calls it after a successful login and ignores its failures.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, subject string, at time.Time) error
}

// Creator is implemented by stores that can register new credentials.
type Creator interface {
	CreateCredential(ctx context.Context, cred Credential) (Credential, error)
}
