package session

import (
	"sync"

	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/tree"
)

// entry is the per-document state of a session. It is the document's
// change listener.
type entry struct {
	session  *Session
	doc      *document.Document
	dirty    *dirty.Range
	reparser tree.Reparser

	mu     sync.RWMutex
	parsed tree.Tree
}

func (e *entry) tree() tree.Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parsed
}

func (e *entry) setTree(t tree.Tree) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parsed = t
}

// DocumentChanged records the edit and queues a commit. It runs under the
// document write lock.
func (e *entry) DocumentChanged(doc *document.Document, c document.Change) {
	s := e.session
	if err := e.dirty.RecordEdit(doc, c.Offset, c.OldLen, c.NewLen); err != nil {
		s.logger.Warn("edit not recorded", "doc", doc.Name(), "offset", c.Offset, "error", err)
		return
	}

	reason := "edit"
	if s.bridge.IsSynchronizing(doc.ID()) {
		reason = "tree-side edit"
	}
	if !s.sched.Enqueue(doc, s, reason) {
		s.logger.Debug("commit not queued", "doc", doc.Name(), "reason", reason)
	}
}
