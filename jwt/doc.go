// Package jwt issues and decodes the signed access tokens used by sessiongate.
//
// Tokens are HS256 JWTs carrying a [Claims] value. [Manager.Decode] reports
// structural, signature and library-level expiry failures as distinct
// sentinel errors; a successful decode proves authenticity only, callers
// still own the liveness decision.
package jwt
