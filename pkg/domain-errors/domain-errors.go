package domainerrors

import (
	"errors"
	"time"
)

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal_error"
	CodeConflict     Code = "conflict"

	// Policy outcomes of an authorization check. CodeNotAuthenticated tells
	// the caller to authenticate (or raise its authentication level);
	// CodeNotAuthorized is categorical and cannot be cured by authenticating.
	CodeNotAuthenticated Code = "not_authenticated"
	CodeNotAuthorized    Code = "not_authorized"

	// CodeCeremonyRejected covers a backend that refused to confirm a
	// completed ceremony. The backend's specific reason is deliberately not
	// carried so callers cannot learn which factor failed.
	CodeCeremonyRejected Code = "ceremony_rejected"

	// CodeSecondFactorRequired gates elevation verification until the
	// session has completed a second-factor ceremony.
	CodeSecondFactorRequired Code = "second_factor_required"

	// CodeRateLimited carries a retry-after hint and is consumed by backoff
	// handling rather than surfaced as a hard failure.
	CodeRateLimited Code = "rate_limited"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across controller, backend-client,
// and transport layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// RetryAfter is only meaningful for CodeRateLimited.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err, RetryAfter: existing.RetryAfter}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// RateLimited creates a CodeRateLimited error carrying the backend's
// retry-after duration.
func RateLimited(retryAfter time.Duration) error {
	return &Error{Code: CodeRateLimited, Message: "too many attempts", RetryAfter: retryAfter}
}

// RetryAfter extracts the retry-after hint from a rate-limited error.
// Returns zero for any other error.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeRateLimited {
		return e.RetryAfter
	}
	return 0
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
