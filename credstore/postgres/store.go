package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sessiongate/sessiongate/credstore"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

const uniqueViolation = "23505"

const (
	lookupCredentialQuery = `
SELECT
  id::text, email, password_hash
FROM users
WHERE lower(email) = lower($1)
`

	recordLoginQuery = `UPDATE users SET last_login = $2 WHERE id = $1`

	createCredentialQuery = `
INSERT INTO users (
  id, email, password_hash, email_verified, created_at, failed_login_attempts
) VALUES ($1, $2, $3, false, $4, 0)
`
)

var ErrNilDB = errors.New("credstore/postgres: db is nil")

var (
	_ credstore.Store         = (*Store)(nil)
	_ credstore.LoginRecorder = (*Store)(nil)
	_ credstore.Creator       = (*Store)(nil)
)

// Store serves credentials from the users table through prepared statements.
type Store struct {
	db  *sql.DB
	now func() time.Time

	lookup      *sql.Stmt
	recordLogin *sql.Stmt
	create      *sql.Stmt
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type statementDef struct {
	label  string
	query  string
	assign func(*Store, *sql.Stmt)
}

var statementDefs = []statementDef{
	{label: "lookup credential", query: lookupCredentialQuery, assign: func(s *Store, stmt *sql.Stmt) { s.lookup = stmt }},
	{label: "record login", query: recordLoginQuery, assign: func(s *Store, stmt *sql.Stmt) { s.recordLogin = stmt }},
	{label: "create credential", query: createCredentialQuery, assign: func(s *Store, stmt *sql.Stmt) { s.create = stmt }},
}

// New prepares the store's statements on db. The caller keeps ownership of
// db; Close only releases the statements.
func New(ctx context.Context, db *sql.DB, opts ...Option) (_ *Store, err error) {
	if db == nil {
		return nil, ErrNilDB
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	for _, def := range statementDefs {
		stmt, prepErr := db.PrepareContext(ctx, def.query)
		if prepErr != nil {
			return nil, fmt.Errorf("credstore/postgres: prepare %s statement: %w", def.label, prepErr)
		}
		def.assign(s, stmt)
	}
	return s, nil
}

// Close releases the prepared statements.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, stmt := range []*sql.Stmt{s.lookup, s.recordLogin, s.create} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", credstore.ErrUnavailable, err)
	}
	return nil
}

// LookupCredential implements credstore.Store.
func (s *Store) LookupCredential(ctx context.Context, identifier string) (credstore.Credential, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return credstore.Credential{}, credstore.ErrNotFound
	}

	var cred credstore.Credential
	err := s.lookup.QueryRowContext(ctx, identifier).Scan(&cred.Subject, &cred.Identifier, &cred.PasswordHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return credstore.Credential{}, credstore.ErrNotFound
	case err != nil:
		return credstore.Credential{}, fmt.Errorf("%w: lookup credential: %v", credstore.ErrUnavailable, err)
	}
	return cred, nil
}

// RecordLogin implements credstore.LoginRecorder.
func (s *Store) RecordLogin(ctx context.Context, subject string, at time.Time) error {
	res, err := s.recordLogin.ExecContext(ctx, subject, at.UTC())
	if err != nil {
		return fmt.Errorf("%w: record login: %v", credstore.ErrUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return credstore.ErrNotFound
	}
	return nil
}

// CreateCredential implements credstore.Creator. An empty Subject is
// replaced with a random UUID; a non-empty one must already be a UUID.
func (s *Store) CreateCredential(ctx context.Context, cred credstore.Credential) (credstore.Credential, error) {
	cred.Identifier = strings.TrimSpace(cred.Identifier)
	if cred.Identifier == "" || cred.PasswordHash == "" {
		return credstore.Credential{}, errors.New("credstore/postgres: identifier and password hash are required")
	}
	if cred.Subject == "" {
		cred.Subject = uuid.NewString()
	} else if _, err := uuid.Parse(cred.Subject); err != nil {
		return credstore.Credential{}, fmt.Errorf("credstore/postgres: subject must be a uuid: %w", err)
	}

	_, err := s.create.ExecContext(ctx, cred.Subject, cred.Identifier, cred.PasswordHash, s.now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return credstore.Credential{}, credstore.ErrDuplicate
		}
		return credstore.Credential{}, fmt.Errorf("%w: create credential: %v", credstore.ErrUnavailable, err)
	}
	return cred, nil
}
