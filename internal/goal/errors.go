package goal

import "errors"

var (
	// ErrNotFound means an identifier resolved to nothing.
	ErrNotFound = errors.New("goal not found")

	// ErrAmbiguousReference means a name fragment matched zero or more
	// than one open goal. The caller asks the user; it never guesses.
	ErrAmbiguousReference = errors.New("ambiguous goal reference")

	// ErrInvalidTransition means a status change the lifecycle table
	// does not allow, such as reopening a completed goal.
	ErrInvalidTransition = errors.New("invalid status transition")
)
