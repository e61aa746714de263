package revocation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces revocation keys.
const DefaultRedisPrefix = "sg:revoked"

// RedisStore keeps one Redis key per revoked token. Keys carry a TTL equal
// to the token's remaining lifetime, so Redis itself compacts the set.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = strings.TrimSuffix(prefix, ":")
	}
}

// WithRedisClock overrides the clock used to derive key TTLs.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		redis:  client,
		prefix: DefaultRedisPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

// Contains implements Store.
func (s *RedisStore) Contains(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	n, err := s.redis.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Insert implements Store. An entry whose expiry has already passed is
// removed instead of written.
func (s *RedisStore) Insert(ctx context.Context, key string, expiresAt time.Time) error {
	if key == "" {
		return ErrEmptyKey
	}

	ttl := expiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}

	if err := s.redis.Set(ctx, s.key(key), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Sweep implements Store. Redis expires keys on its own, so there is
// nothing to compact.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Ping measures a round-trip to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
