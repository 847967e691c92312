// Package transaction buffers tree-originated edits and folds them back
// into a document as a minimal set of disjoint replacements.
//
// While a tree is mutated ahead of its text (for example by a formatter
// rewriting whitespace), every structural edit is reported as a Replace in
// the current logical coordinates of the transaction: the document text
// with all pending edits applied. The transaction keeps one fragment per
// changed region, in original document coordinates, sorted and pairwise
// disjoint. Commit writes the fragments into the document in ascending
// order.
//
// Each Replace is narrowed before it is recorded:
//
//   - common prefixes and suffixes of the old and new text are trimmed
//   - deletions spanning a line break are slid to an equivalent
//     line-aligned position when one exists
//   - a BoundaryPolicy may widen the edit over unchanged neighbours
//
// None of these steps changes the final text.
//
// The Bridge owns one transaction per document. Begin returns a Guard;
// nested Begin calls share the transaction and only the outermost
// Guard.Close flushes it:
//
//	g, err := bridge.Begin(doc)
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//	bridge.Replace(doc, 10, 2, "  ")
package transaction
