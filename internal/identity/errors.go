package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a duplicate username or email.
	ErrConflict = errors.New("identity already registered")
	// ErrUserNotFound is returned when no record matches a login or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStorage wraps failures reading or writing the user store.
	ErrStorage = errors.New("user store failure")

	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: email already registered", ErrConflict)
)
