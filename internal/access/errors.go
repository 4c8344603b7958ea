package access

import "errors"

// Error taxonomy. Everything the engine returns wraps one of these sentinels;
// any other error is an internal storage/transaction failure that already
// rolled back and must be surfaced generically to callers.
var (
	// ErrValidation: malformed or missing required fields. Caller error,
	// no state change.
	ErrValidation = errors.New("access: validation failed")

	// ErrReferenceNotFound: a referenced badge/shift/checkpoint/creator id
	// does not exist. Caller error, no state change.
	ErrReferenceNotFound = errors.New("access: reference not found")

	// ErrNotFound: the access itself does not exist.
	ErrNotFound = errors.New("access: not found")

	// ErrBadgeUnavailable: the requested badge is held by another open
	// access. The losing side of a reserve race receives this; the engine
	// never retries or picks a different badge on the caller's behalf.
	ErrBadgeUnavailable = errors.New("access: badge unavailable")

	// ErrAlreadyClosed: check-out or edit attempted on a closed access.
	ErrAlreadyClosed = errors.New("access: already closed")

	// ErrDuplicateIdentification: the document number is already held in
	// custody for another access.
	ErrDuplicateIdentification = errors.New("access: identification number already held")
)
