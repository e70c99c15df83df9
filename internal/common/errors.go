// Package common defines shared sentinel errors used across the contract
// service layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Identity / authorization errors.
	ErrorUnauthenticated = errors.New("unauthenticated")
	ErrorForbidden       = errors.New("forbidden")

	// ErrorRoleDenied is a rejection based on the actor's role alone,
	// raised before any ownership check. It wraps ErrorForbidden so
	// generic handling still matches it.
	ErrorRoleDenied = fmt.Errorf("%w: operation not allowed for role", ErrorForbidden)

	// Document pipeline errors.
	ErrorRender  = errors.New("render error")
	ErrorStorage = errors.New("storage error")

	// Generic/internal flow control.
	ErrorInternal = errors.New("internal error")
)

// ValidationError reports a required contract field that was missing or
// empty on create.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required field missing: %s", e.Field)
}

// NewValidationError builds a ValidationError for the given field name.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}
