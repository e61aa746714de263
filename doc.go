// Package sessiongate issues, verifies and revokes bearer session tokens for
// an HTTP service.
//
// An [Engine] is built once from a [Config] with [New] and is then safe for
// concurrent use. Login checks a password against a credstore.Store and mints
// an HS256 token; Verify accepts a token only if it is authentic, not revoked
// and not expired; Revoke records a token in the shared revocation store so
// that every later Verify rejects it.
//
// # Architecture boundaries
//
// The jwt package owns token encoding, the revocation package owns the
// revoked-token set, and credstore adapters own user lookup. This package
// orchestrates them and maps every failure onto one of the [Error] sentinels.
// HTTP concerns live in middleware and handler.
//
// # What this package must NOT do
//
//   - Log, echo or return the signing secret.
//   - Log raw tokens or passwords.
//   - Hold a lock across credential store or revocation store I/O.
package sessiongate
