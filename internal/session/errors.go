package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrDocumentNotFound indicates the document is not open in the session.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentAlreadyOpen indicates the document is already tracked.
	ErrDocumentAlreadyOpen = errors.New("document already open")

	// ErrNotCommitted indicates a tree edit was requested on a document
	// whose tree lags behind its text.
	ErrNotCommitted = errors.New("document has uncommitted changes")

	// ErrClosed indicates the session has been shut down.
	ErrClosed = errors.New("session closed")
)

// OperationError records the operation and document an error belongs to.
type OperationError struct {
	Op  string // operation name (e.g., "open", "edit", "commit")
	Doc string // document name
	Err error  // underlying error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, doc string, err error) *OperationError {
	return &OperationError{Op: op, Doc: doc, Err: err}
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Doc == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Doc, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}
