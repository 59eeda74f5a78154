// Package errors provides the error handling system for the copysmith
// generation gateway. It includes structured error types, JSON response
// formatting, request ID tracking, and integrated logging with Uber's zap
// logger.
//
// Beyond the usual HTTP error categories, the package defines the pipeline
// failure taxonomy: TransportError (a channel could not be reached),
// ShapeError (a channel answered but the body matched no known envelope) and
// UnavailableError (every channel failed). Pipeline functions never return
// these as Go errors across their public boundary; they tag results with the
// kind instead.
//
// Basic usage:
//
//	// Simple error response
//	errors.Error(w, "Something went wrong", http.StatusBadRequest)
//
//	// Type-specific error with context
//	errors.ErrorWithType(w, "Invalid input", errors.ValidationError, http.StatusBadRequest)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the
// package. It is initialized to a production configuration but can be
// overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// A nil logger is ignored to prevent accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes errors for client handling.
type ErrorType string

const (
	// AuthError represents authentication and authorization failures
	AuthError ErrorType = "authentication_error"

	// ValidationError represents input validation failures
	ValidationError ErrorType = "validation_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"

	// ConfigError represents configuration-related errors
	ConfigError ErrorType = "config_error"

	// RateLimitError represents rate limiting errors
	RateLimitError ErrorType = "rate_limit_error"

	// TransportError represents a generation channel that could not be
	// reached: network failure, timeout, or a non-2xx execution status
	TransportError ErrorType = "transport_error"

	// ShapeError represents a response body that matched none of the known
	// envelope formats (the service was reachable but produced no content)
	ShapeError ErrorType = "shape_error"

	// UnavailableError represents total unavailability: every channel was
	// tried and failed
	UnavailableError ErrorType = "unavailable_error"
)

// CopysmithError is the gateway error type. It implements the error interface
// and is designed to be serialized to JSON for API responses while keeping
// the underlying error for logging and debugging.
type CopysmithError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface, combining the error type, message,
// and underlying error (if any).
func (e *CopysmithError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap interface for
// error chains.
func (e *CopysmithError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based matching
// while ignoring other fields.
func (e *CopysmithError) Is(target error) bool {
	t, ok := target.(*CopysmithError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes a CopysmithError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes the error
// as a JSON response.
func WriteError(w http.ResponseWriter, err *CopysmithError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}

// Error is a drop-in replacement for http.Error that creates and writes a
// CopysmithError with the InternalError type. It includes the request ID from
// the response headers if available.
func Error(w http.ResponseWriter, message string, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &CopysmithError{
		Type:      InternalError,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}

// ErrorWithType is like Error but allows specifying the error type.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &CopysmithError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
