// Package apierror defines the typed error contract shared by the gateway
// client and the session layer.
package apierror

import (
	"errors"
	"fmt"
)

// Error represents a normalized ChainFund API error. StatusCode carries the
// HTTP status for backend failures; a StatusCode of 0 marks a transport-level
// failure where no response was received. Errors are never mutated after
// construction and never retried by the client layer.
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// New creates a new API error.
func New(statusCode int, code, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// Transport wraps a failure where no HTTP response was received.
func Transport(err error) *Error {
	msg := "Network error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{StatusCode: 0, Message: msg}
}

// IsTransport reports whether err is a transport-level API error.
func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 0
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, statusCode int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

// SchemaError reports a success response whose body did not match the
// expected shape. It is distinct from Error so callers can tell a malformed
// payload apart from a backend-reported failure.
type SchemaError struct {
	Endpoint string
	Detail   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response schema mismatch for %s: %s", e.Endpoint, e.Detail)
}

// IsSchema reports whether err is a response schema error.
func IsSchema(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
