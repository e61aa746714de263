package sessiongate

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error is a client-facing authentication failure. Each sentinel below fixes
// the HTTP status, the machine-readable code and the message rendered to
// clients; Err carries the internal cause and is never rendered.
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code and message, so a wrapped
// sentinel still satisfies errors.Is against the bare one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

func (e *Error) wrap(cause error) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: e.Message, Err: cause}
}

var (
	// ErrInvalidCredentials is returned by Login for any unknown identifier or
	// wrong password.
	ErrInvalidCredentials = &Error{Code: "invalid_credentials", Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	// ErrTokenExpired is returned once now reaches the token's expiry.
	ErrTokenExpired = &Error{Code: "token_expired", Status: http.StatusUnauthorized, Message: "Token has expired"}
	// ErrTokenRevoked is returned for tokens present in the revocation store.
	ErrTokenRevoked = &Error{Code: "token_revoked", Status: http.StatusForbidden, Message: "Token has been revoked"}
	// ErrInvalidTokenFormat is returned for input that is not a well-formed token.
	ErrInvalidTokenFormat = &Error{Code: "invalid_format", Status: http.StatusBadRequest, Message: "Invalid token format"}
	// ErrTokenValidation covers signature failures and internal faults during verification.
	ErrTokenValidation = &Error{Code: "token_invalid", Status: http.StatusInternalServerError, Message: "Token validation failed"}
	// ErrTokenCreation is returned when a token cannot be minted.
	ErrTokenCreation = &Error{Code: "token_creation_failed", Status: http.StatusInternalServerError, Message: "Token creation failed"}
	// ErrMissingAuthorization is returned when the Authorization header is absent.
	ErrMissingAuthorization = &Error{Status: http.StatusUnauthorized, Message: "Missing authorization header"}
	// ErrInvalidAuthorizationFormat is returned when the header is not a bearer credential.
	ErrInvalidAuthorizationFormat = &Error{Status: http.StatusUnauthorized, Message: "Invalid authorization header format"}
	// ErrInvalidRequest is returned for request bodies that cannot be decoded.
	ErrInvalidRequest = &Error{Code: "invalid_request", Status: http.StatusBadRequest, Message: "Invalid request body"}
)

// ErrorResponse is the JSON body written for every failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AsError maps err onto its *Error. Errors from outside this package become
// ErrTokenValidation.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrTokenValidation.wrap(err)
}

// WriteError renders err as a JSON ErrorResponse with the mapped status.
func WriteError(w http.ResponseWriter, err error) {
	e := AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: e.Message, Code: e.Code})
}
