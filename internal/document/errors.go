package document

import "errors"

// Errors returned by document operations.
var (
	// ErrOffsetOutOfRange indicates an offset is outside the document.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid indicates an invalid range (e.g., end < start).
	ErrRangeInvalid = errors.New("invalid range")

	// ErrReadOnly indicates a mutation of a read-only document.
	ErrReadOnly = errors.New("document is read-only")

	// ErrStampMismatch indicates a batch based on a stamp the document has
	// moved past.
	ErrStampMismatch = errors.New("document changed since stamp")
)
