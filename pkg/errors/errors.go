// Package errors provides structured error types for the showcase proxy.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP surface
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The taxonomy mirrors how upstream failures are surfaced to callers:
//   - INVALID_INPUT: missing or malformed request parameters, never retried
//   - RATE_LIMITED: the upstream API refused the request for quota reasons
//   - UPSTREAM_UNAVAILABLE: any other non-success upstream status
//   - NOT_FOUND: the requested resource does not exist upstream
//   - NETWORK_ERROR: the upstream could not be reached at all
//   - INTERNAL_ERROR: unexpected failures inside the proxy
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "username is required")
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap an upstream failure, keeping its status
//	err := errors.Upstream(resp.StatusCode, "github returned %s", resp.Status)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeRateLimited         Code = "RATE_LIMITED"
	ErrCodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	ErrCodeNotFound            Code = "NOT_FOUND"
	ErrCodeNetwork             Code = "NETWORK_ERROR"
	ErrCodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
	Status  int    // Upstream HTTP status, 0 when not applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Upstream creates an UPSTREAM_UNAVAILABLE error carrying the upstream status.
func Upstream(status int, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeUpstreamUnavailable,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
	}
}

// RateLimited creates a RATE_LIMITED error whose message tells the operator
// how to raise the upstream quota.
func RateLimited(cause *RateLimitedError) *Error {
	e := &Error{
		Code:    ErrCodeRateLimited,
		Message: "GitHub rate limit exceeded; set GITHUB_TOKEN on the server",
		Status:  http.StatusForbidden,
	}
	if cause != nil {
		e.Cause = cause
	}
	return e
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code returned to proxy clients.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeNetwork:
		return http.StatusGatewayTimeout
	case ErrCodeUpstreamUnavailable:
		if e.Status >= 500 || e.Status == 0 {
			return http.StatusBadGateway
		}
		return e.Status
	default:
		return http.StatusInternalServerError
	}
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
