// Package tree defines the boundary between the synchronization core and
// the service that derives a structural tree from document text.
//
// The core treats a Tree as opaque. It hands a Reparser the current
// snapshot, the tree that is cached for the document and the dirty block
// that separates them, and swaps the returned tree in when the document
// has not moved since the snapshot was taken.
//
// Reparsers must check their context at regular checkpoints and return
// ctx.Err() when it is done; a cancelled reparse is retried later and its
// partial result is never looked at.
package tree
