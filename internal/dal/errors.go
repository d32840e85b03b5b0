package dal

import "errors"

// Failure taxonomy for the access layer. "Not found" is a normal
// negative outcome, never a store failure; anything not covered by a
// sentinel is wrapped and treated as a store error by the boundary.
var (
	// ErrNotFound signals that no record matched the given pid.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID signals an identifier collision on create. Two
	// concurrent creates can race the non-transactional id allocation;
	// the loser surfaces here instead of silently overwriting.
	ErrDuplicateID = errors.New("duplicate patient id")

	// ErrStoreUnavailable signals that the store connection was never
	// established (missing configuration or failed startup connect).
	// Checked per call so the process keeps serving clean failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNoOpUpdate signals that the update matched a record but changed
	// nothing. Callers receive the unchanged record alongside it.
	ErrNoOpUpdate = errors.New("update changed no fields")
)
