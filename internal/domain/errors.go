package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories and services. Handlers map these to
// HTTP status codes in internal/http/response.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrUpstream = errors.New("upstream service failure")

	// ErrInvalidCredentials carries the one message end users are allowed to
	// see for any authentication failure, whatever the underlying cause, so
	// that responses never reveal whether a username exists, is disabled, or
	// is rate limited.
	ErrInvalidCredentials = errors.New("Invalid username or password")
)

// ValidationError rejects malformed input before any I/O happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
