// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// Field-specific errors below wrap it so callers can test with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPassword is returned when a password doesn't meet requirements.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes which field of an entity failed validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError builds a ValidationError for field. err may be nil.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "invalid " + e.Field + ": " + e.Message + ": " + e.Err.Error()
	}
	return "invalid " + e.Field + ": " + e.Message
}

// Unwrap returns both the specific cause and ErrValidation, so that
// errors.Is(err, ErrValidation) holds for every ValidationError.
func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}
