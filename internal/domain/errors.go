package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports a missing row or blob.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized reports a missing, invalid or foreign credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError is raised before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

// Error renders the field and message.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a field-scoped ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsSlugConflict reports whether a profile write failed because the slug is held by someone else.
// Collaborators surface this either as ErrConflict or through the raw database message.
func IsSlugConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "slug") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}
