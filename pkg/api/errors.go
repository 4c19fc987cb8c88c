package api

import (
	"fmt"
	"net/http"
)

// Error codes carried in error envelopes.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
	CodeWarmingFailed = "CACHE_WARMING_FAILED"
)

// Error is a typed API error with an HTTP status and envelope code.
type Error struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError builds a 400 error for malformed request parameters.
func ValidationError(message string, details interface{}) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NotFoundError builds a 404 error for missing resources.
func NotFoundError(message string) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: message,
	}
}

// InternalError builds a 500 error wrapping an unexpected failure.
func InternalError(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// WarmingError builds a 500 error for a failed cache-warming run.
func WarmingError(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeWarmingFailed,
		Message: "cache warming failed",
		Err:     err,
	}
}
