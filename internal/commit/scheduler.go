package commit

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/lock"
	"github.com/dshills/treesync/internal/tree"
)

// Scheduler commits documents on a single background worker.
// All methods are thread-safe. Shutdown must not be called from inside the
// write section.
type Scheduler struct {
	table        *Table
	access       *lock.Access
	logger       *slog.Logger
	pollInterval time.Duration
	syncRetries  int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*Task
	inflight *Task
	disabled int
	disposed bool
	started  bool
	done     chan struct{}

	stats counters
}

// New creates a scheduler. Finish steps and synchronous commits run under
// access. The worker is not started until Start is called.
func New(access *lock.Access, opts ...Option) *Scheduler {
	s := &Scheduler{
		access:       access,
		logger:       slog.New(slog.DiscardHandler),
		pollInterval: DefaultPollInterval,
		syncRetries:  DefaultSyncRetries,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = NewTable()
	}
	s.logger = s.logger.With("component", "commit")
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Table returns the stage table.
func (s *Scheduler) Table() *Table {
	return s.table
}

// Start launches the worker. Calling it again, or after Shutdown, does
// nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.disposed {
		return
	}
	s.started = true
	go s.run()
}

// Enqueue schedules a background commit of doc. It returns false when the
// scheduler is shut down, doc is untracked, or owner has no tree for doc
// yet. A task already queued for doc is cancelled and replaced in place,
// and a running one is cancelled.
func (s *Scheduler) Enqueue(doc *document.Document, owner Owner, reason string) bool {
	return s.enqueue(doc, owner, reason, 0, true)
}

// enqueue with replace=false leaves an already queued task alone.
func (s *Scheduler) enqueue(doc *document.Document, owner Owner, reason string, attempt int, replace bool) bool {
	if owner.CachedTree(doc) == nil {
		s.logger.Debug("not enqueued: no tree yet", "doc", doc.Name())
		return false
	}

	id := doc.ID()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return false
	}
	i := s.indexOf(id)
	if i >= 0 && !replace {
		return true
	}
	from, ok := s.table.Requeue(id)
	if !ok {
		s.logger.Debug("not enqueued: untracked document", "doc", doc.Name())
		return false
	}

	task := newTask(doc, owner, reason, attempt)
	if i >= 0 {
		s.queue[i].cancel(errSuperseded)
		s.queue[i] = task
		s.stats.coalesced.Add(1)
	} else {
		s.queue = append(s.queue, task)
	}
	if s.inflight != nil && s.inflight.Doc.ID() == id {
		s.inflight.cancel(errSuperseded)
	}
	s.stats.enqueued.Add(1)
	s.logger.Debug("enqueued", "task", task.ID, "doc", doc.Name(), "reason", reason, "from", from)
	s.cond.Signal()
	return true
}

func (s *Scheduler) indexOf(id document.ID) int {
	return slices.IndexFunc(s.queue, func(t *Task) bool { return t.Doc.ID() == id })
}

// Queued returns the documents with a queued task, in queue order.
func (s *Scheduler) Queued() []document.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]document.ID, len(s.queue))
	for i, t := range s.queue {
		ids[i] = t.Doc.ID()
	}
	return ids
}

// Stats returns the event counters.
func (s *Scheduler) Stats() Stats {
	return s.stats.snapshot()
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		task := s.next()
		if task == nil {
			return
		}
		s.process(task)

		s.mu.Lock()
		s.inflight = nil
		s.mu.Unlock()
	}
}

// next blocks until a task may run, and returns nil once shut down.
func (s *Scheduler) next() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.disposed && (s.disabled > 0 || len(s.queue) == 0) {
		s.cond.Wait()
	}
	if s.disposed {
		return nil
	}
	task := s.queue[0]
	s.queue = slices.Delete(s.queue, 0, 1)
	s.inflight = task
	s.stats.dequeued.Add(1)
	return task
}

func (s *Scheduler) process(task *Task) {
	doc, owner := task.Doc, task.Owner
	id := doc.ID()
	log := s.logger.With("task", task.ID, "doc", doc.Name())

	if task.Cancelled() {
		s.cancelled(task, log)
		return
	}
	if stage, _ := s.table.Load(id); stage != QueuedToCommit {
		s.stats.stale.Add(1)
		log.Debug("skipped", "stage", stage)
		return
	}
	if !owner.Alive() {
		log.Debug("skipped: owner closed")
		return
	}
	if !owner.IsUncommitted(doc) {
		if s.table.CompareAndSwap(id, QueuedToCommit, WaitingForTreeApply) {
			s.table.CompareAndSwap(id, WaitingForTreeApply, Committed)
		}
		return
	}

	var (
		snap  document.Snapshot
		block dirty.Block
	)
	owner.ReadState(doc, func(sn document.Snapshot, b dirty.Block) {
		snap, block = sn, b
	})

	frag, err := owner.Reparser(doc).Reparse(task.ctx, snap, owner.CachedTree(doc), block)
	if err != nil {
		if task.Cancelled() {
			s.cancelled(task, log)
			return
		}
		s.stats.failed.Add(1)
		log.Warn("reparse failed", "block", block, "attempt", task.attempt, "error", err)
		s.retryLater(task, "retry after failure")
		return
	}
	if err := check(frag, snap); err != nil {
		s.invariant(doc, owner, err)
		s.retryLater(task, "full re-derivation")
		return
	}

	if !s.table.CompareAndSwap(id, QueuedToCommit, WaitingForTreeApply) {
		s.stats.stale.Add(1)
		log.Debug("stage moved during reparse")
		return
	}
	s.access.Write(func(*lock.Writer) {
		s.finish(task, frag, log)
	})
}

// finish runs inside the write section.
func (s *Scheduler) finish(task *Task, frag *tree.Fragment, log *slog.Logger) {
	id := task.Doc.ID()
	if task.Cancelled() {
		s.cancelled(task, log)
		return
	}
	if stage, _ := s.table.Load(id); stage != WaitingForTreeApply {
		s.stats.stale.Add(1)
		log.Debug("skipped apply", "stage", stage)
		return
	}
	if !task.Owner.Apply(task.Doc, frag) {
		s.stats.stale.Add(1)
		log.Debug("document changed before apply", "stamp", frag.BaseStamp)
		s.requeue(task, "document changed before apply")
		return
	}
	if s.table.CompareAndSwap(id, WaitingForTreeApply, Committed) {
		s.stats.committed.Add(1)
		log.Debug("committed", "stamp", frag.BaseStamp, "block", frag.Block)
	}
}

func (s *Scheduler) cancelled(task *Task, log *slog.Logger) {
	s.stats.cancelled.Add(1)
	cause := task.cause()
	log.Debug("task cancelled", "cause", cause)
	if errors.Is(cause, errDisabled) {
		s.requeue(task, "retry after cancellation")
	}
}

// requeue schedules task's document again unless it is committed or a
// newer task is already queued.
func (s *Scheduler) requeue(task *Task, reason string) {
	if task.Owner.Alive() && task.Owner.IsUncommitted(task.Doc) {
		s.enqueue(task.Doc, task.Owner, reason, task.attempt, false)
	}
}

// retryLater requeues after a delay that grows with every failed attempt.
func (s *Scheduler) retryLater(task *Task, reason string) {
	delay := min(s.pollInterval<<min(task.attempt, 8), maxRetryDelay)
	time.AfterFunc(delay, func() {
		if task.Owner.Alive() && task.Owner.IsUncommitted(task.Doc) {
			s.enqueue(task.Doc, task.Owner, reason, task.attempt+1, false)
		}
	})
}

// CommitSynchronously brings doc's tree up to date on the calling
// goroutine, which must be inside the write section w belongs to. Any queued or running
// background task for doc is cancelled. A failure is an invariant
// violation: it is logged, a full re-derivation is scheduled and the error
// is returned.
func (s *Scheduler) CommitSynchronously(w *lock.Writer, doc *document.Document, owner Owner) error {
	if !s.access.Holds(w) {
		return ErrNoWriteAccess
	}
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return nil
	}

	id := doc.ID()
	log := s.logger.With("doc", doc.Name())
	for {
		cur, ok := s.table.Load(id)
		if !ok {
			return errors.Wrapf(ErrInvariant, "synchronous commit of untracked document %s", doc.Name())
		}
		if cur == Committed {
			if !owner.IsUncommitted(doc) {
				return nil
			}
			s.table.CompareAndSwap(id, Committed, QueuedToCommit)
			continue
		}
		if cur == AboutToBeSyncCommitted || s.table.CompareAndSwap(id, cur, AboutToBeSyncCommitted) {
			break
		}
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.queue[i].cancel(errSyncCommit)
		s.queue = slices.Delete(s.queue, i, i+1)
	}
	if s.inflight != nil && s.inflight.Doc.ID() == id {
		s.inflight.cancel(errSyncCommit)
	}
	s.mu.Unlock()

	for attempt := 0; attempt <= s.syncRetries; attempt++ {
		var (
			snap  document.Snapshot
			block dirty.Block
		)
		owner.ReadState(doc, func(sn document.Snapshot, b dirty.Block) {
			snap, block = sn, b
		})

		frag, err := owner.Reparser(doc).Reparse(context.Background(), snap, owner.CachedTree(doc), block)
		if err != nil {
			err = errors.WithStack(fmt.Errorf("%w: synchronous reparse of %s: %w", ErrInvariant, doc.Name(), err))
		} else {
			err = check(frag, snap)
		}
		if err != nil {
			s.invariant(doc, owner, err)
			s.enqueue(doc, owner, "full re-derivation", 0, true)
			return err
		}

		if owner.Apply(doc, frag) {
			if s.table.CompareAndSwap(id, AboutToBeSyncCommitted, Committed) {
				s.stats.committed.Add(1)
				log.Debug("committed synchronously", "stamp", frag.BaseStamp, "block", frag.Block)
			} else {
				log.Debug("edited again right after synchronous commit")
			}
			return nil
		}
		s.stats.stale.Add(1)
		log.Debug("document moved during synchronous commit", "attempt", attempt)
	}

	err := errors.Wrapf(ErrInvariant, "%s kept changing during synchronous commit", doc.Name())
	s.invariant(doc, owner, err)
	s.enqueue(doc, owner, "full re-derivation", 0, true)
	return err
}

// check verifies that frag is a result for snap.
func check(frag *tree.Fragment, snap document.Snapshot) error {
	switch {
	case frag == nil || frag.Tree == nil:
		return errors.Wrap(ErrInvariant, "reparse returned no tree")
	case frag.BaseStamp != snap.Stamp:
		return errors.Wrapf(ErrInvariant, "reparse result for stamp %d, snapshot is %d", frag.BaseStamp, snap.Stamp)
	case frag.Tree.Len() != len(snap.Text):
		return errors.Wrapf(ErrInvariant, "tree covers %d bytes, text has %d", frag.Tree.Len(), len(snap.Text))
	}
	return nil
}

// invariant logs err and forces a full re-derivation of doc.
func (s *Scheduler) invariant(doc *document.Document, owner Owner, err error) {
	s.stats.invariant.Add(1)
	stage, _ := s.table.Load(doc.ID())
	s.logger.Error("commit invariant violated",
		"doc", doc.Name(), "id", doc.ID(), "stage", stage, "error", err, "stack", fmt.Sprintf("%+v", err))
	owner.Invalidate(doc)
}

// Disable suspends background commits and cancels the running task.
// Calls nest; each must be matched by Enable.
func (s *Scheduler) Disable(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled++
	if s.inflight != nil {
		s.inflight.cancel(errDisabled)
	}
	s.logger.Debug("disabled", "reason", reason, "depth", s.disabled)
}

// Enable undoes one Disable.
func (s *Scheduler) Enable(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled == 0 {
		s.logger.Warn("enable without disable", "reason", reason)
		return
	}
	s.disabled--
	s.logger.Debug("enabled", "reason", reason, "depth", s.disabled)
	if s.disabled == 0 {
		s.cond.Broadcast()
	}
}

// Shutdown stops the scheduler: the queue is dropped, the running task is
// cancelled and the call waits, polling, until the worker has exited or ctx
// is done. Every later operation is a no-op.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.disposed {
		s.disposed = true
		for _, t := range s.queue {
			t.cancel(errShutdown)
		}
		s.queue = nil
		if s.inflight != nil {
			s.inflight.cancel(errShutdown)
		}
	}
	started := s.started
	s.cond.Broadcast()
	s.mu.Unlock()

	if !started {
		return nil
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
		case <-ticker.C:
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		}
	}
}
