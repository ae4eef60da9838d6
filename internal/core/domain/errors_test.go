package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("CP-TEST-1000", "test message"),
			expected: "[CP-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("CP-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[CP-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("CP-TEST-1000", "message 1")
	err2 := NewDomainError("CP-TEST-1000", "message 2")
	err3 := NewDomainError("CP-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_WithCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	withCause := ErrSessionRejected.WithCause(cause)

	if ErrSessionRejected.Cause != nil {
		t.Error("WithCause should not modify original error")
	}
	if errors.Unwrap(withCause) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(withCause), cause)
	}
	if !errors.Is(withCause, ErrSessionRejected) {
		t.Error("copy should still match the original code")
	}
}

func TestIsDomainError(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrIdentityMalformed)

	if !IsDomainError(wrapped, "CP-STAT-4220") {
		t.Error("IsDomainError should work with wrapped errors")
	}
	if !IsDomainError(wrapped, "") {
		t.Error("empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "CP-STAT-4220") {
		t.Error("IsDomainError should return false for non-DomainError")
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := GetErrorCode(fmt.Errorf("x: %w", ErrNotLoggedIn)); got != "CP-AUTH-4010" {
		t.Errorf("GetErrorCode() = %q, want %q", got, "CP-AUTH-4010")
	}
	if got := GetErrorCode(nil); got != "" {
		t.Errorf("GetErrorCode(nil) = %q, want empty", got)
	}
}

func TestErrorForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   *DomainError
	}{
		{200, nil},
		{204, nil},
		{400, ErrInvalidRequest},
		{401, ErrSessionRejected},
		{403, ErrAdminRequired},
		{404, ErrRecordNotFound},
		{422, ErrInvalidRequest},
		{500, ErrBackend},
		{503, ErrBackend},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			got := ErrorForStatus(tt.status)
			if got != tt.want {
				t.Errorf("ErrorForStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
