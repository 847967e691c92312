package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/treesync/internal/commit"
	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/lock"
	"github.com/dshills/treesync/internal/transaction"
	"github.com/dshills/treesync/internal/tree"
)

// Session tracks open documents and their trees.
// All methods are thread-safe.
//
// Document listeners run under the document lock and take the session
// read lock, so the session never calls into a document while holding mu.
type Session struct {
	access lock.Access
	table  *commit.Table
	sched  *commit.Scheduler
	bridge *transaction.Bridge

	logger    *slog.Logger
	reparsers ReparserFactory
	policy    transaction.BoundaryPolicy
	strict    bool
	schedOpts []commit.Option
	observers []commit.Observer

	mu     sync.RWMutex
	docs   map[document.ID]*entry
	order  []document.ID
	closed bool

	waiters waiters
}

// New creates a session. Background commits start with Start.
func New(opts ...Option) *Session {
	s := &Session{
		logger:    slog.New(slog.DiscardHandler),
		reparsers: LineTrees,
		table:     commit.NewTable(),
		docs:      make(map[document.ID]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	base := s.logger
	s.logger = base.With("component", "session")

	s.table.Observe(s.stageChanged)
	for _, fn := range s.observers {
		s.table.Observe(fn)
	}

	schedOpts := append([]commit.Option{
		commit.WithTable(s.table),
		commit.WithLogger(base),
	}, s.schedOpts...)
	s.sched = commit.New(&s.access, schedOpts...)

	s.bridge = transaction.NewBridge(
		transaction.WithPolicy(s.policy),
		transaction.WithLogger(base.With("component", "transaction")),
		transaction.WithInvariantHandler(s.transactionBroken),
	)
	return s
}

// Start launches background commits.
func (s *Session) Start() {
	s.sched.Start()
}

// Open creates a document with the given name and text, tracks it and
// derives its first tree before returning.
func (s *Session) Open(name, text string, opts ...document.Option) (*document.Document, error) {
	doc := document.New(name, append([]document.Option{document.WithText(text)}, opts...)...)
	if err := s.Track(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Track starts tracking an existing document and derives its first tree
// synchronously. The document is not tracked when that fails.
func (s *Session) Track(doc *document.Document) error {
	reparser, err := s.reparsers(doc.Name())
	if err != nil {
		return NewOperationError("open", doc.Name(), err)
	}

	e := &entry{
		session:  s,
		doc:      doc,
		reparser: reparser,
		dirty: dirty.New(
			dirty.WithStrict(s.strict),
			dirty.WithLogger(s.logger.With("doc", doc.Name())),
		),
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return NewOperationError("open", doc.Name(), ErrClosed)
	case s.docs[doc.ID()] != nil:
		s.mu.Unlock()
		return NewOperationError("open", doc.Name(), ErrDocumentAlreadyOpen)
	}
	s.docs[doc.ID()] = e
	s.order = append(s.order, doc.ID())
	s.table.Init(doc.ID())
	s.mu.Unlock()

	doc.AddListener(e)
	e.dirty.MarkFull(doc, doc.Len())

	err = s.WriteAction(func(w *Writer) error {
		return w.CommitSync(doc.ID())
	})
	if err != nil {
		s.untrack(doc.ID())
		return NewOperationError("open", doc.Name(), err)
	}
	s.logger.Debug("document opened", "doc", doc.Name(), "id", doc.ID(), "len", doc.Len())
	return nil
}

// Document returns the open document with the given id.
func (s *Session) Document(id document.ID) (*document.Document, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.doc, nil
}

// Documents returns the open documents in the order they were opened.
func (s *Session) Documents() []*document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*document.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, s.docs[id].doc)
	}
	return docs
}

// Tree returns the tree currently installed for the document. It may lag
// behind the text; call CommitSync or WaitCommitted first for a fresh one.
func (s *Session) Tree(id document.ID) (tree.Tree, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.tree(), nil
}

// Stage returns the commit stage of the document.
func (s *Session) Stage(id document.ID) (commit.Stage, error) {
	if _, err := s.lookup(id); err != nil {
		return commit.Dirty, err
	}
	stage, ok := s.table.Load(id)
	if !ok {
		return commit.Dirty, ErrDocumentNotFound
	}
	return stage, nil
}

// IsCommitted reports whether the document's tree reflects its text.
func (s *Session) IsCommitted(id document.ID) bool {
	e, err := s.lookup(id)
	if err != nil {
		return false
	}
	return s.committed(e)
}

func (s *Session) committed(e *entry) bool {
	stage, ok := s.table.Load(e.doc.ID())
	return ok && stage == commit.Committed && e.dirty.IsEmpty()
}

// Uncommitted returns the documents with edits their tree lacks, in open
// order.
func (s *Session) Uncommitted() []document.ID {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.docs[id])
	}
	s.mu.RUnlock()

	var ids []document.ID
	for _, e := range entries {
		if !e.dirty.IsEmpty() {
			ids = append(ids, e.doc.ID())
		}
	}
	return ids
}

// Edit replaces oldLen bytes at offset with text. The document's tree is
// brought up to date in the background.
func (s *Session) Edit(id document.ID, offset, oldLen int, text string) error {
	e, err := s.lookup(id)
	if err != nil {
		return NewOperationError("edit", "", err)
	}
	if err := e.doc.Replace(offset, offset+oldLen, text); err != nil {
		return NewOperationError("edit", e.doc.Name(), err)
	}
	return nil
}

// WriteAction runs fn inside the exclusive write section with background
// commits suspended. WriteAction calls must not nest.
func (s *Session) WriteAction(fn func(w *Writer) error) error {
	s.sched.Disable("write action")
	defer s.sched.Enable("write action")
	return s.access.WriteErr(func(lw *lock.Writer) error {
		return fn(&Writer{session: s, lock: lw})
	})
}

// ReadAction runs fn concurrently with other readers and excluded from
// every write section, so no tree is swapped while fn runs.
func (s *Session) ReadAction(fn func() error) error {
	var err error
	s.access.Read(func() { err = fn() })
	return err
}

// CommitSync brings the document's tree up to date before returning.
func (s *Session) CommitSync(id document.ID) error {
	return s.WriteAction(func(w *Writer) error {
		return w.CommitSync(id)
	})
}

// CommitAll brings every uncommitted document up to date in one write
// section.
func (s *Session) CommitAll() error {
	return s.WriteAction(func(w *Writer) error {
		return w.CommitAll()
	})
}

// Close stops tracking the document. Pending tree-side edits are dropped.
func (s *Session) Close(id document.ID) error {
	e := s.untrack(id)
	if e == nil {
		return NewOperationError("close", "", ErrDocumentNotFound)
	}
	s.logger.Debug("document closed", "doc", e.doc.Name(), "id", id)
	return nil
}

func (s *Session) untrack(id document.ID) *entry {
	s.mu.Lock()
	e := s.docs[id]
	if e != nil {
		delete(s.docs, id)
		s.order = slices.DeleteFunc(s.order, func(o document.ID) bool { return o == id })
	}
	s.mu.Unlock()
	if e == nil {
		return nil
	}

	e.doc.RemoveListener(e)
	s.bridge.Discard(id)
	s.table.Forget(id)
	e.dirty.Clear()
	e.setTree(nil)
	s.waiters.notify(id)
	return e
}

// Stats returns the scheduler counters.
func (s *Session) Stats() commit.Stats {
	return s.sched.Stats()
}

// Shutdown stops background commits and waits for the worker to exit or
// ctx to expire. Documents stay readable; nothing is committed afterwards.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.sched.Shutdown(ctx)
	s.waiters.notifyAll()
	if err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}
	return err
}

func (s *Session) lookup(id document.ID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.docs[id]; ok {
		return e, nil
	}
	return nil, ErrDocumentNotFound
}

func (s *Session) stageChanged(id document.ID, from, to commit.Stage) {
	s.logger.Debug("stage changed", "id", id, "from", from, "to", to)
	if to == commit.Committed {
		s.waiters.notify(id)
	}
}

// transactionBroken forces a full re-derivation after a failed flush.
func (s *Session) transactionBroken(doc *document.Document, err error) {
	s.logger.Error("tree-side edit lost, rebuilding tree", "doc", doc.Name(), "error", err)
	s.Invalidate(doc)
	s.sched.Enqueue(doc, s, "full re-derivation")
}

// Writer performs operations that require the write section. It is valid
// only inside the WriteAction callback it was passed to.
type Writer struct {
	session *Session
	lock    *lock.Writer
}

// CommitSync brings the document's tree up to date.
func (w *Writer) CommitSync(id document.ID) error {
	s := w.session
	e, err := s.lookup(id)
	if err != nil {
		return NewOperationError("commit", "", err)
	}
	if err := s.sched.CommitSynchronously(w.lock, e.doc, s); err != nil {
		return NewOperationError("commit", e.doc.Name(), err)
	}
	return nil
}

// CommitAll brings every uncommitted document up to date.
func (w *Writer) CommitAll() error {
	var errs []error
	for _, id := range w.session.Uncommitted() {
		if err := w.CommitSync(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Edit replaces oldLen bytes at offset with text.
func (w *Writer) Edit(id document.ID, offset, oldLen int, text string) error {
	return w.session.Edit(id, offset, oldLen, text)
}
