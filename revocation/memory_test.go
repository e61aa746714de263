package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreInsertContains(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := Key("token-a")

	ok, err := s.Contains(ctx, key)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if ok {
		t.Fatal("expected empty store not to contain key")
	}

	if err := s.Insert(ctx, key, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ok, err = s.Contains(ctx, key)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !ok {
		t.Fatal("expected key after insert")
	}
}

func TestMemoryStoreInsertIsIdempotentOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	if err := s.Insert(ctx, "k", base.Add(time.Minute)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.Insert(ctx, "k", base.Add(time.Hour)); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry, got %d", s.Len())
	}

	// The second insert moved the expiry; a sweep past the first one keeps it.
	removed, err := s.Sweep(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected overwritten entry to survive, removed=%d", removed)
	}
}

func TestMemoryStoreSweepBoundary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	_ = s.Insert(ctx, "expired", base.Add(-time.Second))
	_ = s.Insert(ctx, "edge", base)
	_ = s.Insert(ctx, "live", base.Add(time.Second))

	removed, err := s.Sweep(ctx, base)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 entries swept, got %d", removed)
	}
	if ok, _ := s.Contains(ctx, "edge"); ok {
		t.Fatal("expected entry expiring exactly at now to be swept")
	}
	if ok, _ := s.Contains(ctx, "live"); !ok {
		t.Fatal("expected live entry to survive sweep")
	}
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Contains(ctx, ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey from Contains, got %v", err)
	}
	if err := s.Insert(ctx, "", time.Now()); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey from Insert, got %v", err)
	}
}

func TestMemoryStoreConcurrentInsertVisible(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key(fmt.Sprintf("token-%d", i))
			if err := s.Insert(ctx, key, exp); err != nil {
				t.Errorf("insert %d: %v", i, err)
				return
			}
			// Insert must be visible to every later Contains.
			if ok, err := s.Contains(ctx, key); err != nil || !ok {
				t.Errorf("contains %d after insert: ok=%v err=%v", i, ok, err)
			}
			_, _ = s.Sweep(ctx, time.Now())
		}(i)
	}
	wg.Wait()

	if s.Len() != workers {
		t.Fatalf("expected %d entries, got %d", workers, s.Len())
	}
}

func TestKeyIsStableDigest(t *testing.T) {
	if Key("abc") != Key("abc") {
		t.Fatal("expected Key to be deterministic")
	}
	if Key("abc") == Key("abd") {
		t.Fatal("expected different tokens to map to different keys")
	}
	if len(Key("abc")) != 64 {
		t.Fatalf("expected hex sha256 length 64, got %d", len(Key("abc")))
	}
}
