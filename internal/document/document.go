package document

import (
	"fmt"
	"slices"
	"sync"
)

// Document is a mutable text buffer with a modification stamp.
// All methods are thread-safe.
type Document struct {
	mu        sync.RWMutex
	id        ID
	name      string
	text      string
	stamp     Stamp
	readOnly  bool
	listeners []Listener
}

// New creates a document with the given display name.
func New(name string, opts ...Option) *Document {
	d := &Document{name: name}
	for _, opt := range opts {
		opt(d)
	}
	if d.id == (ID{}) {
		d.id = NewID()
	}
	d.stamp = NextStamp()
	return d
}

// Read Operations

// ID returns the document identity.
func (d *Document) ID() ID {
	return d.id
}

// Name returns the display name given at creation.
func (d *Document) Name() string {
	return d.name
}

// Text returns the full document content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Len returns the byte length of the document.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.text)
}

// Stamp returns the current modification stamp.
func (d *Document) Stamp() Stamp {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stamp
}

// Snapshot returns an immutable view of the current state.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

// Read calls fn with a snapshot while holding the read lock, so state that
// listeners maintain under the write lock can be read consistently with it.
func (d *Document) Read(fn func(snap Snapshot)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.snapshotLocked())
}

func (d *Document) snapshotLocked() Snapshot {
	return Snapshot{ID: d.id, Name: d.name, Text: d.text, Stamp: d.stamp}
}

// ReadOnly reports whether the read-only guard is set.
func (d *Document) ReadOnly() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readOnly
}

// SetReadOnly sets the read-only guard.
func (d *Document) SetReadOnly(readOnly bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readOnly = readOnly
}

// Write Operations

// Insert inserts text at offset.
func (d *Document) Insert(offset int, text string) error {
	return d.ApplyEdit(NewInsert(offset, text))
}

// Delete removes text in [start, end).
func (d *Document) Delete(start, end int) error {
	return d.ApplyEdit(NewDelete(start, end))
}

// Replace replaces [start, end) with text.
func (d *Document) Replace(start, end int, text string) error {
	return d.ApplyEdit(Edit{Range: Range{Start: start, End: end}, NewText: text})
}

// ApplyEdit applies a single edit and notifies listeners.
// A no-op edit neither changes the stamp nor notifies anyone.
func (d *Document) ApplyEdit(edit Edit) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.readOnly {
		return ErrReadOnly
	}
	text, change, err := apply(d.text, edit)
	if err != nil || edit.IsNoOp() {
		return err
	}
	d.text = text
	d.stamp = NextStamp()
	change.Stamp = d.stamp
	d.notify(change)
	return nil
}

// ApplyBatch applies edits in order, each against the text the previous one
// produced, as one atomic mutation: no other edit can interleave, and an
// invalid edit leaves the document untouched. It fails with ErrStampMismatch
// when the document is no longer at stamp. With unguarded set the batch is
// written even into a read-only document; the guard itself is unchanged and
// keeps rejecting every other writer. Listeners see one change per edit once
// the whole batch is in place.
func (d *Document) ApplyBatch(stamp Stamp, edits []Edit, unguarded bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stamp != stamp {
		return ErrStampMismatch
	}
	if d.readOnly && !unguarded {
		return ErrReadOnly
	}

	text := d.text
	changes := make([]Change, 0, len(edits))
	for i, edit := range edits {
		next, change, err := apply(text, edit)
		if err != nil {
			return fmt.Errorf("edit %d %v: %w", i, edit, err)
		}
		if edit.IsNoOp() {
			continue
		}
		text = next
		changes = append(changes, change)
	}
	if len(changes) == 0 {
		return nil
	}

	d.text = text
	for i := range changes {
		changes[i].Stamp = NextStamp()
	}
	d.stamp = changes[len(changes)-1].Stamp
	for _, c := range changes {
		d.notify(c)
	}
	return nil
}

// apply returns text with edit applied and the change describing it.
func apply(text string, edit Edit) (string, Change, error) {
	if edit.Range.Start < 0 || edit.Range.Start > len(text) {
		return "", Change{}, ErrOffsetOutOfRange
	}
	if !edit.Range.IsValid() || edit.Range.End > len(text) {
		return "", Change{}, ErrRangeInvalid
	}
	oldText := text[edit.Range.Start:edit.Range.End]
	return text[:edit.Range.Start] + edit.NewText + text[edit.Range.End:], Change{
		Offset:  edit.Range.Start,
		OldLen:  len(oldText),
		NewLen:  len(edit.NewText),
		OldText: oldText,
		NewText: edit.NewText,
	}, nil
}

func (d *Document) notify(c Change) {
	for _, l := range d.listeners {
		l.DocumentChanged(d, c)
	}
}

// IfUnchanged runs fn under the write lock when the document stamp still
// equals stamp, and reports whether it ran. No edit can interleave with fn.
func (d *Document) IfUnchanged(stamp Stamp, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stamp != stamp {
		return false
	}
	fn()
	return true
}

// Listeners

// AddListener registers l for change notifications.
func (d *Document) AddListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// RemoveListener unregisters l. Listeners are compared by identity, so l
// must be comparable.
func (d *Document) RemoveListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := slices.Index(d.listeners, l); i >= 0 {
		d.listeners = slices.Delete(d.listeners, i, i+1)
	}
}
