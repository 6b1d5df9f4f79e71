package booking

import "errors"

// Recoverable booking errors. The transport layer maps each of them to a
// re-prompt; none of them terminates the conversation.
var (
	// ErrNotFound means a referenced service or appointment is gone or
	// inactive (e.g. deactivated mid-flow).
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means the submitted action does not match the
	// session's current state. Stored selections stay untouched.
	ErrInvalidTransition = errors.New("action not valid for current state")

	// ErrSlotUnavailable means the chosen date/time is no longer free.
	// Raised both at selection time and by the commit-time re-check.
	ErrSlotUnavailable = errors.New("slot no longer available")

	// ErrValidation means malformed input: bad date or time format,
	// out-of-range values.
	ErrValidation = errors.New("invalid input")
)
