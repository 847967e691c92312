package session

import (
	"context"

	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/tree"
)

// The methods below implement commit.Owner.

// Alive reports whether the session still accepts commits.
func (s *Session) Alive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// CachedTree returns the tree installed for doc, or nil.
func (s *Session) CachedTree(doc *document.Document) tree.Tree {
	e, err := s.lookup(doc.ID())
	if err != nil {
		return nil
	}
	return e.tree()
}

// Reparser returns doc's reparse service.
func (s *Session) Reparser(doc *document.Document) tree.Reparser {
	e, err := s.lookup(doc.ID())
	if err != nil {
		return closedReparser{}
	}
	return e.reparser
}

// IsUncommitted reports whether doc has edits its tree lacks.
func (s *Session) IsUncommitted(doc *document.Document) bool {
	e, err := s.lookup(doc.ID())
	if err != nil {
		return false
	}
	return !e.dirty.IsEmpty()
}

// ReadState reads a snapshot of doc and its dirty block under the document
// read lock.
func (s *Session) ReadState(doc *document.Document, fn func(document.Snapshot, dirty.Block)) {
	e, err := s.lookup(doc.ID())
	if err != nil {
		doc.Read(func(snap document.Snapshot) {
			fn(snap, dirty.Block{Start: 0, TextEnd: snap.Len(), TreeEnd: snap.Len(), Full: true})
		})
		return
	}
	doc.Read(func(snap document.Snapshot) {
		fn(snap, e.dirty.Bounds())
	})
}

// Apply installs frag when doc has not moved past frag.BaseStamp.
func (s *Session) Apply(doc *document.Document, frag *tree.Fragment) bool {
	e, err := s.lookup(doc.ID())
	if err != nil {
		return false
	}
	return doc.IfUnchanged(frag.BaseStamp, func() {
		e.dirty.Lock()
		defer e.dirty.Unlock()
		e.setTree(frag.Tree)
		e.dirty.Clear()
	})
}

// Invalidate makes the next reparse of doc start from scratch.
func (s *Session) Invalidate(doc *document.Document) {
	e, err := s.lookup(doc.ID())
	if err != nil {
		return
	}
	e.dirty.MarkFull(doc, doc.Len())
}

// closedReparser serves documents closed while a commit was in flight.
type closedReparser struct{}

func (closedReparser) Reparse(context.Context, document.Snapshot, tree.Tree, dirty.Block) (*tree.Fragment, error) {
	return nil, ErrDocumentNotFound
}
