package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidPolyline   = errors.New("invalid polyline: at least 2 distinct points required")
	ErrInvalidRadius     = errors.New("invalid radius: must be positive")
	ErrEmptyStops        = errors.New("stop list is empty")
	ErrInvalidInput      = errors.New("invalid input")
)

// ValidationError is a structural input error naming the offending field.
// Callers must fix the input; no partial result accompanies it.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// Invalidf builds a ValidationError wrapping ErrInvalidInput with a message.
func Invalidf(field string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field: field,
		Err:   fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...)),
	}
}
