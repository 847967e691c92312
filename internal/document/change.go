package document

import "fmt"

// Edit describes a replacement of Range with NewText.
type Edit struct {
	Range   Range
	NewText string
}

// NewInsert creates an Edit that inserts text at offset.
func NewInsert(offset int, text string) Edit {
	return Edit{Range: Range{Start: offset, End: offset}, NewText: text}
}

// NewDelete creates an Edit that deletes [start, end).
func NewDelete(start, end int) Edit {
	return Edit{Range: Range{Start: start, End: end}}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range)
	}
	return fmt.Sprintf("Replace%s with %q", e.Range, e.NewText)
}

// IsNoOp returns true if the edit does nothing.
func (e Edit) IsNoOp() bool {
	return e.Range.IsEmpty() && e.NewText == ""
}

// Change is delivered to listeners after a mutation has been applied.
type Change struct {
	Offset  int
	OldLen  int
	NewLen  int
	OldText string
	NewText string

	// Stamp is the document stamp after the change.
	Stamp Stamp
}

// Delta returns the change in document length.
func (c Change) Delta() int {
	return c.NewLen - c.OldLen
}

// Listener observes document mutations.
//
// DocumentChanged runs while the document write lock is held; it must not
// call back into doc.
type Listener interface {
	DocumentChanged(doc *Document, change Change)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(doc *Document, change Change)

// DocumentChanged calls f(doc, change).
func (f ListenerFunc) DocumentChanged(doc *Document, change Change) {
	f(doc, change)
}
