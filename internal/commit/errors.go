package commit

import "errors"

var (
	// ErrNoWriteAccess is returned by CommitSynchronously outside the
	// exclusive write section.
	ErrNoWriteAccess = errors.New("synchronous commit requires write access")

	// ErrShutdownTimeout is returned when the worker does not stop in time.
	ErrShutdownTimeout = errors.New("commit worker did not stop before deadline")

	// ErrInvariant marks an internal consistency failure. The document is
	// scheduled for a full re-derivation when it is reported.
	ErrInvariant = errors.New("commit invariant violated")
)

// Causes attached to cancelled task contexts.
var (
	errSuperseded = errors.New("superseded by a newer edit")
	errDisabled   = errors.New("scheduler disabled")
	errSyncCommit = errors.New("synchronous commit")
	errShutdown   = errors.New("scheduler shut down")
)
