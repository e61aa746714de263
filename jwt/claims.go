package jwt

import "time"

// Claims is the identity and validity window embedded in an access token.
//
// Claims is a plain value: it performs no validation and cannot be mutated
// after construction. Times are unix seconds.
type Claims struct {
	id        string
	subject   string
	issuedAt  int64
	expiresAt int64
}

// NewClaims builds a claims value for subject valid from issuedAt until
// expiresAt (both unix seconds).
func NewClaims(subject string, expiresAt, issuedAt int64) Claims {
	return Claims{
		subject:   subject,
		issuedAt:  issuedAt,
		expiresAt: expiresAt,
	}
}

// WithID returns a copy of c carrying the given token identifier.
func (c Claims) WithID(id string) Claims {
	c.id = id
	return c
}

// Subject is the authenticated identity.
func (c Claims) Subject() string { return c.subject }

// IssuedAt is the unix second the token was minted.
func (c Claims) IssuedAt() int64 { return c.issuedAt }

// ExpiresAt is the unix second from which the token is no longer valid.
func (c Claims) ExpiresAt() int64 { return c.expiresAt }

// ID is the unique token identifier (jti).
func (c Claims) ID() string { return c.id }

// ExpiresTime returns ExpiresAt as a UTC time.
func (c Claims) ExpiresTime() time.Time {
	return time.Unix(c.expiresAt, 0).UTC()
}

// ExpiredAt reports whether the validity window has closed at now.
func (c Claims) ExpiredAt(now time.Time) bool {
	return now.Unix() >= c.expiresAt
}
