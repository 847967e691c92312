package transaction

import "errors"

// Errors returned by transaction operations.
var (
	// ErrRangeInvalid indicates a replace outside the logical text.
	ErrRangeInvalid = errors.New("invalid replace range")

	// ErrStaleTransaction indicates the document changed after Begin.
	ErrStaleTransaction = errors.New("document changed during transaction")

	// ErrReentrantSync indicates Begin was called while the document's
	// transaction is being flushed into it.
	ErrReentrantSync = errors.New("document is already synchronizing")

	// ErrInvariant indicates broken fragment bookkeeping. It is never
	// expected in correct usage.
	ErrInvariant = errors.New("transaction invariant violated")
)
