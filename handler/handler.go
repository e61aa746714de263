package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/sessiongate/sessiongate"
	"github.com/sessiongate/sessiongate/jwt"
	"github.com/sessiongate/sessiongate/middleware"
)

// maxBodyBytes bounds request bodies for /login and /ping.
const maxBodyBytes = 1 << 20

// Authenticator is the engine surface the HTTP API needs.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (sessiongate.LoginResult, error)
	Verify(ctx context.Context, token string) (jwt.Claims, error)
	Revoke(ctx context.Context, token string) error
}

// Option customizes the handler returned by New.
type Option func(*server)

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger. The default discards.
func WithLogger(log logr.Logger) Option {
	return func(s *server) {
		if log.GetSink() != nil {
			s.log = log.WithName("http")
		}
	}
}

type server struct {
	auth    Authenticator
	metrics http.Handler
	log     logr.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	Token        string `json:"token"`
	TokenType    string `json:"token_type"`
	TokenExpires int64  `json:"token_expires"`
}

// MessageResponse is the body of a successful logout.
type MessageResponse struct {
	Message string `json:"message"`
}

// MeResponse describes the caller's verified token.
type MeResponse struct {
	Subject   string `json:"subject"`
	TokenID   string `json:"token_id,omitempty"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// New returns the routed API.
func New(auth Authenticator, opts ...Option) http.Handler {
	s := &server{
		auth: auth,
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	guard := middleware.Guard(auth)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.login)
	mux.Handle("GET /logout", guard(http.HandlerFunc(s.logout)))
	mux.Handle("POST /logout", guard(http.HandlerFunc(s.logout)))
	mux.Handle("GET /me", guard(http.HandlerFunc(s.me)))
	mux.HandleFunc("POST /ping", s.ping)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return middleware.ClientIP(mux)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		s.log.V(1).Info("login body rejected", "error", err.Error())
		sessiongate.WriteError(w, sessiongate.ErrInvalidRequest)
		return
	}

	res, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		sessiongate.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:        res.Token,
		TokenType:    res.TokenType,
		TokenExpires: res.ExpiresAt.Unix(),
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		sessiongate.WriteError(w, sessiongate.ErrMissingAuthorization)
		return
	}
	if err := s.auth.Revoke(r.Context(), token); err != nil {
		sessiongate.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		sessiongate.WriteError(w, sessiongate.ErrMissingAuthorization)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		Subject:   claims.Subject(),
		TokenID:   claims.ID(),
		IssuedAt:  claims.IssuedAt(),
		ExpiresAt: claims.ExpiresAt(),
	})
}

func (s *server) ping(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		sessiongate.WriteError(w, sessiongate.ErrInvalidRequest)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
