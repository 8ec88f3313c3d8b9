// Package services holds the hostel business logic: occupancy, billing,
// reporting, archiving and payments. Handlers translate the errors below
// into HTTP responses.
package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrCapacityExceeded  = errors.New("room is already fully occupied")
	ErrTargetFull        = errors.New("target room is already full")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyPaid       = errors.New("bill already paid")
	ErrDuplicate         = errors.New("duplicate")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrBadCredentials    = errors.New("invalid credentials")

	// errConcurrentUpdate is returned when a conditional room update lost a race.
	errConcurrentUpdate = errors.New("room modified concurrently")
)

// FieldError describes an invalid or missing request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes field errors match ErrInvalidInput.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

func notFound(what string, key string) error {
	return fmt.Errorf("%s %q: %w", what, key, ErrNotFound)
}
