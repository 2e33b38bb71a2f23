package cache

import (
	"errors"
	"fmt"
)

// ErrMissingIdentifier is matched by every *MissingHeaderError.
var ErrMissingIdentifier = errors.New("missing resource identifier header")

// MissingHeaderError is returned when a header set is supplied to a cached
// call without a usable resource identifier.
type MissingHeaderError struct {
	Header string
	Reason string
}

// Error implements the error interface.
func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("missing header %q: %s", e.Header, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MissingHeaderError) Unwrap() error {
	return ErrMissingIdentifier
}
