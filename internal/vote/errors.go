package vote

import "errors"

var (
	// ErrUnauthenticated is returned for mutations without a resolved identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotFound is returned when the target or the voting user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers races and transient persistence failures. Nothing
	// was applied; the caller may retry.
	ErrConflict = errors.New("conflicting vote update")

	ErrInvalidTarget    = errors.New("invalid vote target")
	ErrInvalidDirection = errors.New("invalid vote direction")
)
