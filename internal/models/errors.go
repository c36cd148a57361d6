package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id does not resolve to a record
	ErrNotFound = errors.New("record not found")

	// ErrValidation marks input rejected before any state change
	ErrValidation = errors.New("validation failed")
)

// Invalid wraps ErrValidation with a field-level message
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
