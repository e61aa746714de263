package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sessiongate/sessiongate"
	"github.com/sessiongate/sessiongate/jwt"
)

const bearerPrefix = "Bearer "

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, token string) (jwt.Claims, error)
}

type claimsContextKey struct{}
type tokenContextKey struct{}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(jwt.Claims)
	return claims, ok
}

// TokenFromContext returns the raw token Guard verified.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok
}

// Guard rejects requests without a valid bearer token.
func Guard(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				sessiongate.WriteError(w, sessiongate.ErrTokenValidation)
				return
			}

			token, err := requestToken(r)
			if err != nil {
				sessiongate.WriteError(w, err)
				return
			}

			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				sessiongate.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestToken distinguishes an absent Authorization header from a present
// but empty one; only the former is ErrMissingAuthorization.
func requestToken(r *http.Request) (string, error) {
	if len(r.Header.Values("Authorization")) == 0 {
		return "", sessiongate.ErrMissingAuthorization
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", sessiongate.ErrInvalidAuthorizationFormat
	}
	return BearerToken(header)
}

// BearerToken extracts the credential from an Authorization header value.
// The remainder after "Bearer " is returned as is, even when empty; judging
// it is the verifier's job.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", sessiongate.ErrMissingAuthorization
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", sessiongate.ErrInvalidAuthorizationFormat
	}
	return header[len(bearerPrefix):], nil
}
