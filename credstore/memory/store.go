// Package memory is an in-process credstore adapter.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sessiongate/sessiongate/credstore"
)

// Store keeps credentials in a map keyed by case-folded identifier.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]credstore.Credential
	lastLogins map[string]time.Time
}

var (
	_ credstore.Store         = (*Store)(nil)
	_ credstore.LoginRecorder = (*Store)(nil)
	_ credstore.Creator       = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:       map[string]credstore.Credential{},
		lastLogins: map[string]time.Time{},
	}
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Put inserts or replaces a credential.
func (s *Store) Put(cred credstore.Credential) {
	s.mu.Lock()
	s.byID[normalize(cred.Identifier)] = cred
	s.mu.Unlock()
}

// LookupCredential implements credstore.Store.
func (s *Store) LookupCredential(_ context.Context, identifier string) (credstore.Credential, error) {
	s.mu.RLock()
	cred, ok := s.byID[normalize(identifier)]
	s.mu.RUnlock()
	if !ok {
		return credstore.Credential{}, credstore.ErrNotFound
	}
	return cred, nil
}

// CreateCredential implements credstore.Creator. An empty Subject is
// replaced with a random UUID.
func (s *Store) CreateCredential(_ context.Context, cred credstore.Credential) (credstore.Credential, error) {
	if cred.Subject == "" {
		cred.Subject = uuid.NewString()
	}
	key := normalize(cred.Identifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[key]; exists {
		return credstore.Credential{}, credstore.ErrDuplicate
	}
	s.byID[key] = cred
	return cred, nil
}

// RecordLogin implements credstore.LoginRecorder.
func (s *Store) RecordLogin(_ context.Context, subject string, at time.Time) error {
	s.mu.Lock()
	s.lastLogins[subject] = at
	s.mu.Unlock()
	return nil
}

// LastLogin returns the time recorded by the most recent RecordLogin for subject.
func (s *Store) LastLogin(subject string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.lastLogins[subject]
	return at, ok
}
