// Package document provides the mutable text buffer that the synchronization
// engine keeps consistent with its derived tree.
//
// A Document owns its text and a monotonically increasing modification stamp.
// Every successful mutation assigns a fresh Stamp drawn from a process-wide
// counter, so two stamps are never equal unless they describe the same
// document state.
//
// Basic usage:
//
//	doc := document.New("main.go", document.WithText("package main\n"))
//
//	// Edit the text
//	doc.Insert(8, "x")
//	doc.Replace(0, 7, "module")
//
//	// Read a consistent view from another goroutine
//	snap := doc.Snapshot()
//	go func() {
//	    parse(snap.Text)
//	}()
//
// Listeners:
//
// Listeners are notified synchronously while the document write lock is
// held. This makes the recorded change and the new stamp observable as one
// atomic step, but it also means a listener must never call back into the
// document it is observing.
//
// Optimistic locking:
//
// IfUnchanged runs a function under the document write lock only when the
// stamp still matches the one a computation was based on. The commit
// scheduler uses it to swap in a reparsed tree without racing editors.
//
// Read-only documents:
//
// A read-only document rejects mutations with ErrReadOnly. ApplyBatch with
// unguarded set writes a batch past the guard without touching it, which is
// how tree-originated edits reach nominally read-only documents. The
// exemption covers that batch only.
package document
