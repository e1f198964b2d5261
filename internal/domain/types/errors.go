package types

import (
	"errors"
	"fmt"
)

// Error kinds shared across packages so transports can classify failures.
var (
	// ErrInvalidInput marks caller-supplied values outside their valid domain.
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrUnavailable  = errors.New("unavailable")
)

// InputError identifies the argument that failed validation.
type InputError struct {
	Field  string
	Reason string
}

// NewInputError builds an InputError for field.
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error { return ErrInvalidInput }
