// Package domain defines the core models of the CEPIP console.
package domain

import (
	"errors"
	"net/http"
)

// DomainError is an error carrying a stable, structured error code.
//
// Codes have the form CP-<AREA>-<NNNN> where the number follows the HTTP
// status family the condition maps to.
type DomainError struct {
	Code    string // Error code (e.g., "CP-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

func (e *DomainError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches by code, so errors.Is(err, ErrRecordNotFound) holds for any
// copy made by WithDetails or WithCause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError reports whether err wraps a DomainError with code; an
// empty code accepts any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && (code == "" || de.Code == code)
}

// GetErrorCode returns the code of the DomainError in err's chain, or "".
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Authentication errors (AUTH).
var (
	// ErrNotLoggedIn indicates no access token is stored.
	ErrNotLoggedIn = NewDomainError("CP-AUTH-4010", "not logged in")

	// ErrSessionRejected indicates the backend refused the stored token.
	ErrSessionRejected = NewDomainError("CP-AUTH-4011", "session rejected by server")

	// ErrVerifyUnavailable indicates the identity endpoint could not be reached.
	ErrVerifyUnavailable = NewDomainError("CP-AUTH-5030", "identity endpoint unavailable")

	// ErrAdminRequired indicates the operation needs an administrator.
	ErrAdminRequired = NewDomainError("CP-AUTH-4030", "administrator privileges required")
)

// Persisted state errors (STAT).
var (
	// ErrIdentityMalformed indicates a stored or received identity record is not a JSON object.
	ErrIdentityMalformed = NewDomainError("CP-STAT-4220", "malformed identity record")

	// ErrStateUnreadable indicates persisted state could not be decrypted or read.
	ErrStateUnreadable = NewDomainError("CP-STAT-5001", "persisted state unreadable")
)

// Backend API errors (API).
var (
	// ErrRecordNotFound indicates the backend answered 404.
	ErrRecordNotFound = NewDomainError("CP-API-4040", "record not found")

	// ErrInvalidRequest indicates the backend answered 400 or 422.
	ErrInvalidRequest = NewDomainError("CP-API-4000", "invalid request")

	// ErrBackend indicates the backend answered with a 5xx status.
	ErrBackend = NewDomainError("CP-API-5000", "backend error")
)

// ErrorForStatus maps an HTTP status code to the matching domain error.
// Statuses below 400 return nil.
func ErrorForStatus(status int) *DomainError {
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusUnauthorized:
		return ErrSessionRejected
	case status == http.StatusForbidden:
		return ErrAdminRequired
	case status == http.StatusNotFound:
		return ErrRecordNotFound
	case status >= http.StatusInternalServerError:
		return ErrBackend
	default:
		return ErrInvalidRequest
	}
}
