package transport

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is matched by every *InvalidArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// RequestFailedError is returned for any unsuccessful status other than 404.
type RequestFailedError struct {
	Reason     string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s: %s", e.StatusCode, e.Reason, e.Body)
}

// Class returns the error classification of the failed status.
func (e *RequestFailedError) Class() ErrorClass {
	return classifyStatus(e.StatusCode)
}

// InvalidArgumentError is returned for a method outside GET/POST/PUT/DELETE.
type InvalidArgumentError struct {
	Method Method
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: unsupported method %q", string(e.Method))
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
