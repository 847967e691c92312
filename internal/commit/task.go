package commit

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/dshills/treesync/internal/document"
)

// Task is a queued background commit of one document.
type Task struct {
	ID     ulid.ULID
	Doc    *document.Document
	Owner  Owner
	Reason string

	// attempt counts failed reparses that led to this task.
	attempt int

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newTask(doc *document.Document, owner Owner, reason string, attempt int) *Task {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Task{
		ID:      ulid.Make(),
		Doc:     doc,
		Owner:   owner,
		Reason:  reason,
		attempt: attempt,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Cancelled reports whether the task was cancelled.
func (t *Task) Cancelled() bool {
	return t.ctx.Err() != nil
}

// cause returns why the task was cancelled, or nil.
func (t *Task) cause() error {
	return context.Cause(t.ctx)
}

// String returns a short description of the task.
func (t *Task) String() string {
	return fmt.Sprintf("task %s doc=%s (%s)", t.ID, t.Doc.Name(), t.Reason)
}
