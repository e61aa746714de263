// Package middleware gates HTTP handlers behind bearer-token verification.
//
// [Guard] reads the Authorization header, asks a [Verifier] (normally a
// *sessiongate.Engine) to check the token and, on success, stores the claims
// and the raw token in the request context. On failure it writes the mapped
// JSON error and never calls the wrapped handler.
//
// # What this package must NOT do
//
//   - Parse or sign tokens itself.
//   - Log raw Authorization header values.
package middleware
