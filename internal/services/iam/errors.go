package iam

import "errors"

var (
	// ErrInvalidCredentials is returned when email/password login fails.
	// Deliberately vague so callers cannot distinguish a missing account
	// from a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRole is returned when a request names a role outside the
	// fixed role set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrRoleNotGranted is returned when a principal requests an acting role
	// they do not hold.
	ErrRoleNotGranted = errors.New("role not granted")

	// ErrUserDisabled is returned when a disabled account attempts to log in.
	ErrUserDisabled = errors.New("user is disabled")
)
