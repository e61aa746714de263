// Package revocation stores the keys of access tokens that were revoked
// before their natural expiry.
//
// # Backends
//
//   - [MemoryStore]: a mutex-guarded map; every call holds the lock for
//     exactly one map operation or one sweep.
//   - [RedisStore]: one key per revoked token with a TTL equal to the
//     token's remaining lifetime.
//
// An entry never outlives the expiry of the token it blocks: once a token
// has expired it is rejected on expiry grounds anyway, so stale entries are
// compacted by [Store.Sweep] (memory) or by Redis key expiry.
//
// # What this package must NOT do
//
//   - Decode or verify tokens (callers pass the expiry they already trust).
//   - Hold a lock across I/O.
package revocation
