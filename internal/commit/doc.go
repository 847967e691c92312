// Package commit keeps document trees up to date in the background.
//
// Every tracked document has a Stage in a Table. Transitions are
// compare-and-swap operations: an actor that loses a race abandons its own
// completion instead of overwriting newer state.
//
//	Dirty ──────────────┐
//	  │                 │
//	  ▼                 ▼
//	QueuedToCommit ──► AboutToBeSyncCommitted
//	  │                 ▲        │
//	  ▼                 │        │
//	WaitingForTreeApply ┘        │
//	  │                          │
//	  ▼                          ▼
//	Committed ◄──────────────────┘
//
// Any stage may move back to QueuedToCommit when a document is re-queued,
// and Committed moves there on the next edit.
//
// A Scheduler owns one worker goroutine draining a FIFO of at most one Task
// per document. The worker reparses without holding the write section and
// applies the result inside it; an edit that lands in between cancels the
// task, and an apply against a moved document is discarded. Synchronous
// commits run on the caller, which must already hold the write section.
package commit
