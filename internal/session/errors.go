package session

import (
	"errors"
	"fmt"

	"github.com/yndnr/cepip-console/internal/core/domain"
)

// ErrLoginRequired is returned once the gateway has sent the operator to
// the login view.
var ErrLoginRequired = domain.ErrNotLoggedIn

// ErrMalformedPersistedState marks a stored identity that is not a JSON
// object or cannot be read back. Initialize recovers from it by clearing
// the session; it never reaches callers.
var ErrMalformedPersistedState = errors.New("session: malformed persisted state")

// AuthError reports a failed verification. Network failures (StatusCode 0),
// non-2xx answers and undecodable bodies are all AuthErrors and are
// handled the same way.
type AuthError struct {
	// StatusCode of the verification response, 0 if none arrived.
	StatusCode int
	Err        error
}

func newAuthError(status int, cause error) *AuthError {
	var base *domain.DomainError
	switch {
	case status == 0:
		base = domain.ErrVerifyUnavailable
	default:
		base = domain.ErrSessionRejected.WithDetails(fmt.Sprintf("status %d", status))
	}
	if cause != nil {
		base = base.WithCause(cause)
	}
	return &AuthError{StatusCode: status, Err: base}
}

func (e *AuthError) Error() string {
	return "session: verification failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
