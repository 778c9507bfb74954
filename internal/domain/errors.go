package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrTransport signals that a backend could not be reached or answered non-2xx.
	ErrTransport = errors.New("backend transport failure")
	// ErrDecode signals a malformed backend response body.
	ErrDecode = errors.New("malformed backend response")
	// ErrTimeout signals that a request exceeded its time budget.
	ErrTimeout = errors.New("request timed out")
	// ErrUnroutable signals a request with no backend to serve it.
	ErrUnroutable = errors.New("request is unroutable")
	// ErrInvalidRecord signals a record submission that fails validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidLocation signals a malformed location query string.
	ErrInvalidLocation = errors.New("invalid location")
	// ErrSessionNotFound signals an unknown search session.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError wraps ErrInvalidRecord with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRecord.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

// NewValidationError creates a validation error for a record field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
