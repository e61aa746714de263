package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingSecret is returned by NewManager when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt: signing secret required")
	// ErrEncodingFailure wraps serialization or signing faults during Issue.
	ErrEncodingFailure = errors.New("jwt: token encoding failed")
	// ErrMalformedToken is returned when the input is not a well-formed signed payload.
	ErrMalformedToken = errors.New("jwt: malformed token")
	// ErrSignatureInvalid is returned when the signature does not match the secret.
	ErrSignatureInvalid = errors.New("jwt: signature invalid")
	// ErrExpired is returned when the parser's own exp check fails.
	ErrExpired = errors.New("jwt: token expired")
	// ErrInvalidClaims covers the remaining registered-claim failures (iat, iss).
	ErrInvalidClaims = errors.New("jwt: invalid claims")
)

// Config defines the codec settings.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// Secret is the HS256 key. It is copied by NewManager.
	Secret []byte
	// Issuer is stamped into issued tokens and required on decode when non-empty.
	Issuer string
	// Now overrides the clock used by the parser's time checks.
	Now func() time.Time
}

// Manager signs and decodes access tokens with a single shared secret.
//
// Manager is safe for concurrent use.
type Manager struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewManager validates cfg and returns a ready codec.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	m := &Manager{
		secret: secret,
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    now,
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// Issue serializes claims and signs them. A claims value without a token id
// is assigned a random UUID.
func (m *Manager) Issue(claims Claims) (string, error) {
	id := claims.ID()
	if id == "" {
		generated, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("%w: generate token id: %v", ErrEncodingFailure, err)
		}
		id = generated.String()
	}

	registered := jwt.RegisteredClaims{
		ID:        id,
		Subject:   claims.Subject(),
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt(), 0)),
		ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt(), 0)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, registered)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return signed, nil
}

// Decode verifies the signature of tokenStr and reconstructs its claims.
//
// A nil error means the token is authentic and well formed. It does not
// guarantee the token is still live; callers compare ExpiresAt themselves.
//
// Only input that is not three non-empty dot-separated segments is reported
// as ErrMalformedToken. The signature is checked before the header or payload
// is decoded, so any altered byte of a signed token yields ErrSignatureInvalid.
func (m *Manager) Decode(tokenStr string) (Claims, error) {
	if err := m.verifySignature(tokenStr); err != nil {
		return Claims{}, err
	}

	var registered jwt.RegisteredClaims
	token, err := m.parser.ParseWithClaims(tokenStr, &registered, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if !token.Valid {
		return Claims{}, ErrSignatureInvalid
	}
	if registered.Subject == "" || registered.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing sub or iat", ErrMalformedToken)
	}

	claims := NewClaims(
		registered.Subject,
		registered.ExpiresAt.Unix(),
		registered.IssuedAt.Unix(),
	).WithID(registered.ID)
	return claims, nil
}

func (m *Manager) verifySignature(tokenStr string) error {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("%w: expected three segments", ErrMalformedToken)
	}

	sig, err := m.parser.DecodeSegment(parts[2])
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrSignatureInvalid, err)
	}
	signingString := tokenStr[:len(parts[0])+1+len(parts[1])]
	if err := jwt.SigningMethodHS256.Verify(signingString, sig, m.secret); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}
