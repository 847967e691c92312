package commit

import (
	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/tree"
)

// Owner is the session a document belongs to. The scheduler never holds
// its own lock while calling an Owner.
type Owner interface {
	// Alive reports whether the owner still accepts commits.
	Alive() bool

	// CachedTree returns the tree currently installed for doc, or nil.
	CachedTree(doc *document.Document) tree.Tree

	// Reparser returns the service that derives doc's tree.
	Reparser(doc *document.Document) tree.Reparser

	// IsUncommitted reports whether doc has edits its tree lacks.
	IsUncommitted(doc *document.Document) bool

	// ReadState calls fn with a snapshot and the dirty block that belongs
	// to it, read atomically with respect to edits.
	ReadState(doc *document.Document, fn func(snap document.Snapshot, block dirty.Block))

	// Apply installs frag if doc is still at frag.BaseStamp, clearing the
	// dirty range, and reports whether it did. Apply runs inside the
	// write section.
	Apply(doc *document.Document, frag *tree.Fragment) bool

	// Invalidate forces the next reparse of doc to start from scratch.
	Invalidate(doc *document.Document)
}
