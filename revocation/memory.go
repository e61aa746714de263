package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
//
// MemoryStore is safe for concurrent use. Its zero value is not usable; call
// NewMemoryStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]int64{},
	}
}

// Contains implements Store.
func (s *MemoryStore) Contains(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	s.mu.Lock()
	_, ok := s.entries[key]
	s.mu.Unlock()
	return ok, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, key string, expiresAt time.Time) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	s.entries[key] = expiresAt.Unix()
	s.mu.Unlock()
	return nil
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	cutoff := now.Unix()
	removed := 0

	s.mu.Lock()
	for key, exp := range s.entries {
		if exp <= cutoff {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()
	return removed, nil
}

// Len returns the number of entries currently held, swept or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
