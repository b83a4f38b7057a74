package domain

import "errors"

// Error kinds shared by every store. Callers wrap them with context using
// fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrNotFound means the operation referenced an entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIdentityMismatch means a user actor received a call addressed to
	// another user. It signals a routing bug, not a user error.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrAlreadyExists is returned when creating a list whose slug is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnsafe marks a URL rejected by the reputation check.
	ErrUnsafe = errors.New("unsafe url")

	// ErrUnreachable means the page could not be fetched or resolved.
	ErrUnreachable = errors.New("unreachable")

	// ErrRestoreFailed means a backup payload could not be applied.
	ErrRestoreFailed = errors.New("restore failed")

	// ErrInvalidInput marks a malformed argument: a bad URL, an empty slug.
	ErrInvalidInput = errors.New("invalid input")
)
