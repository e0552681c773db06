package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("resource already exists")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrMalformedID indicates an id that is not in the expected format.
	ErrMalformedID = errors.New("malformed id")
	// ErrUnauthenticated indicates a missing, invalid, or expired credential.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the authenticated identity lacks the required
	// role or does not own the target resource.
	ErrForbidden = errors.New("access denied")
)

// Validationf wraps ErrValidation with a human-readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
