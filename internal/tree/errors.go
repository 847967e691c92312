package tree

import "errors"

// ErrNoTree is returned when a reparse is requested for a document that
// has no cached tree.
var ErrNoTree = errors.New("no tree for document")
