package service

import "errors"

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrResidentNotFound is returned when a token refers to a resident that no longer exists.
	ErrResidentNotFound = errors.New("resident not found")
	// ErrProcessNotFound is returned for missing processes and processes owned by someone else.
	ErrProcessNotFound = errors.New("process not found")
)

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
