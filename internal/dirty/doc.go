// Package dirty tracks the contiguous region of a document that has been
// edited since its tree was last synchronized.
//
// A Range keeps three offsets: the start of the window, its end in the
// current text and the corresponding end in the stale tree. Every edit
// widens the window to a superset of all edits since the last commit. The
// rule can over-invalidate but never under-invalidates.
//
//	r := dirty.New()
//	r.RecordEdit(doc, 10, 0, 5)   // insert 5 bytes at 10
//	r.RecordEdit(doc, 40, 2, 0)   // delete 2 bytes at 40
//	b := r.Bounds()               // {Start:10 TextEnd:40 TreeEnd:37}
//
// While a commit applies the window the range is locked; an edit during
// that time is a contract violation.
package dirty
