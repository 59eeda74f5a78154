package errors

import (
	"net/http"
)

// NewError creates a new CopysmithError with the given parameters. It is a
// general-purpose constructor that allows full control over the error's
// fields. For most cases, use one of the specialized constructors below.
//
// Example:
//
//	err := NewError(InternalError, "config reload failed", 500, "req_123", nil, ioErr)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *CopysmithError {
	return &CopysmithError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewAuthError creates an authentication error with appropriate defaults.
// Use this for missing or invalid bearer tokens and API keys.
func NewAuthError(requestID, message string, err error) *CopysmithError {
	return &CopysmithError{
		Type:      AuthError,
		Message:   message,
		Code:      http.StatusUnauthorized,
		RequestID: requestID,
		err:       err,
		Details: map[string]interface{}{
			"suggestion": "Please check your authentication credentials",
		},
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for request validation failures: invalid input formats, missing
// required fields, value constraint violations.
//
// Example:
//
//	err := NewValidationError("req_123", "Invalid request", map[string]interface{}{
//	    "field": "toolName",
//	    "error": "must not be empty",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *CopysmithError {
	return &CopysmithError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewRateLimitError creates a rate limit error with appropriate defaults.
func NewRateLimitError(requestID string, retryAfter int) *CopysmithError {
	return &CopysmithError{
		Type:      RateLimitError,
		Message:   "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewTransportError creates a transport error with appropriate defaults.
// Use this when a generation channel cannot be reached: network failure,
// timeout, or a non-2xx execution status.
func NewTransportError(requestID string, message string, err error) *CopysmithError {
	return &CopysmithError{
		Type:      TransportError,
		Message:   message,
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewUnavailableError creates an error reporting total channel
// unavailability: every channel was tried once and failed.
func NewUnavailableError(requestID string, err error) *CopysmithError {
	return &CopysmithError{
		Type:      UnavailableError,
		Message:   "Generation service unavailable",
		Code:      http.StatusServiceUnavailable,
		RequestID: requestID,
		err:       err,
	}
}

// NewInternalError creates an internal server error with appropriate
// defaults. Use this for unexpected errors not covered by other types.
func NewInternalError(requestID string, err error) *CopysmithError {
	return &CopysmithError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
