package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewInvalidCredentials is returned for both unknown usernames and wrong
// passwords; the two cases must stay indistinguishable to the caller.
func NewInvalidCredentials() error {
	return NewDomainError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)
}

// NewDuplicateUsername reports a registration against a taken username.
func NewDuplicateUsername(username string) error {
	return NewDomainError("DUPLICATE_USERNAME", "username already registered",
		http.StatusConflict, map[string]any{"username": username})
}

// NewInvalidToken covers tokens that fail to decode on profile routes.
func NewInvalidToken() error {
	return NewDomainError("INVALID_TOKEN", "invalid token", http.StatusForbidden, nil)
}

// NewTokenUnreadable covers the verify route's missing-or-undecodable case.
func NewTokenUnreadable() error {
	return NewDomainError("TOKEN_UNREADABLE", "missing or unreadable token", http.StatusBadRequest, nil)
}

// NewCorrelationMismatch reports a client request id that does not match the
// one embedded in the token.
func NewCorrelationMismatch() error {
	return NewDomainError("CORRELATION_MISMATCH", "invalid client request id", http.StatusForbidden, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Store and signing
// failures collapse to INTERNAL_ERROR so no internal detail crosses the
// boundary.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
