package session

import (
	"errors"

	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/transaction"
)

// TreeEdit buffers edits made on the tree side of a document and writes
// them into the text on Close.
type TreeEdit struct {
	session *Session
	doc     *document.Document
	guard   *transaction.Guard
}

// BeginTreeEdit opens a tree-side transaction on the document. Nested
// calls share one transaction; the outermost Close writes it back. A
// document with uncommitted edits is refused: its tree does not describe
// its text.
func (s *Session) BeginTreeEdit(id document.ID) (*TreeEdit, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, NewOperationError("begin tree edit", "", err)
	}
	if !e.dirty.IsEmpty() {
		return nil, NewOperationError("begin tree edit", e.doc.Name(), ErrNotCommitted)
	}
	g, err := s.bridge.Begin(e.doc)
	if err != nil {
		return nil, NewOperationError("begin tree edit", e.doc.Name(), err)
	}
	return &TreeEdit{session: s, doc: e.doc, guard: g}, nil
}

// TreeEdit runs fn inside a tree-side transaction on the document.
func (s *Session) TreeEdit(id document.ID, fn func(te *TreeEdit) error) error {
	te, err := s.BeginTreeEdit(id)
	if err != nil {
		return err
	}
	err = fn(te)
	return errors.Join(err, te.Close())
}

// Replace records a replacement in the logical coordinates of the
// transaction: the text with every pending edit applied.
func (t *TreeEdit) Replace(offset, oldLen int, text string) error {
	if err := t.session.bridge.Replace(t.doc, offset, oldLen, text); err != nil {
		return NewOperationError("tree edit", t.doc.Name(), err)
	}
	return nil
}

// Pending returns the buffered fragments.
func (t *TreeEdit) Pending() []transaction.Fragment {
	return t.session.bridge.Pending(t.doc.ID())
}

// Close releases the transaction. The outermost Close writes the buffered
// edits into the document inside a write action, so it must not be called
// from one. Close is idempotent.
func (t *TreeEdit) Close() error {
	err := t.session.WriteAction(func(*Writer) error {
		return t.guard.Close()
	})
	if err != nil {
		return NewOperationError("tree edit", t.doc.Name(), err)
	}
	return nil
}
