package dirty

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/treesync/internal/document"
)

// unset marks an empty range.
const unset = -1

// Block is a frozen copy of a dirty window.
type Block struct {
	// Start is the first dirty offset in both text and tree coordinates.
	Start int

	// TextEnd is the exclusive end of the window in the current text.
	TextEnd int

	// TreeEnd is the exclusive end of the window in the stale tree.
	TreeEnd int

	// Full requests a non-incremental re-derivation of the whole document.
	Full bool
}

// IsEmpty returns true for the zero block of a clean document.
func (b Block) IsEmpty() bool {
	return !b.Full && b.Start == unset
}

// TextRange returns the window in current text coordinates.
func (b Block) TextRange() document.Range {
	return document.Range{Start: b.Start, End: b.TextEnd}
}

// TreeRange returns the window in stale tree coordinates.
func (b Block) TreeRange() document.Range {
	return document.Range{Start: b.Start, End: b.TreeEnd}
}

// String returns a human-readable representation of the block.
func (b Block) String() string {
	switch {
	case b.Full:
		return "full"
	case b.IsEmpty():
		return "clean"
	}
	return fmt.Sprintf("[%d text:%d tree:%d)", b.Start, b.TextEnd, b.TreeEnd)
}

// Range is the dirty window of one document. All methods are thread-safe.
type Range struct {
	mu      sync.Mutex
	doc     *document.Document
	start   int
	textEnd int
	treeEnd int
	full    bool
	locked  bool

	strict bool
	logger *slog.Logger
}

// New creates an empty range.
func New(opts ...Option) *Range {
	r := &Range{
		start:  unset,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordEdit widens the window to cover an edit that replaced oldLen bytes
// at offset with newLen bytes. The range pins doc until it is cleared.
func (r *Range) RecordEdit(doc *document.Document, offset, oldLen, newLen int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		if r.strict {
			panic(fmt.Sprintf("dirty: edit at %d recorded while range is locked", offset))
		}
		r.logger.Warn("edit recorded while dirty range is locked",
			"offset", offset, "old_len", oldLen, "new_len", newLen)
		return ErrLocked
	}

	r.doc = doc
	if r.full {
		r.textEnd += newLen - oldLen
		return nil
	}

	if r.start == unset {
		r.start = offset
		r.textEnd = offset + newLen
		r.treeEnd = offset + oldLen
		return nil
	}

	if shift := offset + oldLen - r.textEnd; shift > 0 {
		// the edit reaches past the dirty suffix
		r.treeEnd += shift
		r.textEnd = offset + newLen
	} else {
		r.textEnd += newLen - oldLen
	}
	r.start = min(r.start, offset)
	return nil
}

// MarkFull turns the window into a request for a full re-derivation of a
// document of the given current length.
func (r *Range) MarkFull(doc *document.Document, textLen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	r.full = true
	r.start = 0
	r.textEnd = textLen
	r.treeEnd = textLen
}

// IsEmpty reports whether no edit has been recorded since the last Clear.
func (r *Range) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start == unset && !r.full
}

// Bounds returns a frozen copy of the window.
func (r *Range) Bounds() Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Block{Start: r.start, TextEnd: r.textEnd, TreeEnd: r.treeEnd, Full: r.full}
}

// Document returns the pinned document, or nil when the range is empty.
func (r *Range) Document() *document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// Clear empties the window and releases the document reference.
func (r *Range) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = unset
	r.textEnd = 0
	r.treeEnd = 0
	r.full = false
	r.doc = nil
}

// Lock forbids edits until Unlock.
func (r *Range) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

// Unlock allows edits again.
func (r *Range) Unlock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = false
}

// IsLocked reports whether the range is locked.
func (r *Range) IsLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}
