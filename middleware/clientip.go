package middleware

import (
	"net"
	"net/http"

	"github.com/sessiongate/sessiongate"
)

// ClientIP records the peer address of each request for audit events.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "" {
			r = r.WithContext(sessiongate.WithClientIP(r.Context(), host))
		}
		next.ServeHTTP(w, r)
	})
}
