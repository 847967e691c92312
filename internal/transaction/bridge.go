package transaction

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/dshills/treesync/internal/document"
)

// InvariantHandler is told about a broken transaction so the owner can
// force a full re-derivation of the document's tree.
type InvariantHandler func(doc *document.Document, err error)

// Bridge opens and flushes transactions per document.
// All methods are thread-safe.
type Bridge struct {
	mu      sync.Mutex
	open    map[document.ID]*entry
	syncing map[document.ID]int

	policy      BoundaryPolicy
	logger      *slog.Logger
	onInvariant InvariantHandler
}

type entry struct {
	doc   *document.Document
	txn   *Transaction
	depth int
}

// NewBridge creates a bridge.
func NewBridge(opts ...Option) *Bridge {
	b := &Bridge{
		open:    make(map[document.ID]*entry),
		syncing: make(map[document.ID]int),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Begin opens the document's transaction, or re-enters the open one.
// The returned Guard must be closed; the outermost Close commits.
func (b *Bridge) Begin(doc *document.Document) (*Guard, error) {
	// document listeners call back into the bridge under the document
	// lock, so the snapshot must be taken before b.mu
	snap := doc.Snapshot()

	b.mu.Lock()
	defer b.mu.Unlock()

	id := doc.ID()
	if b.syncing[id] > 0 {
		return nil, ErrReentrantSync
	}

	e, ok := b.open[id]
	if !ok {
		e = &entry{doc: doc, txn: New(snap, b.policy)}
		b.open[id] = e
	}
	e.depth++
	return &Guard{bridge: b, entry: e}, nil
}

// Replace records a replacement in the document's open transaction. With no
// transaction open the replacement goes straight into the document.
func (b *Bridge) Replace(doc *document.Document, offset, oldLen int, newText string) error {
	b.mu.Lock()
	e, ok := b.open[doc.ID()]
	if !ok {
		b.mu.Unlock()
		return b.synchronize(doc, func() error {
			edit := document.Edit{
				Range:   document.Range{Start: offset, End: offset + oldLen},
				NewText: newText,
			}
			return writeBatch(doc, doc.Stamp(), []document.Edit{edit})
		})
	}

	err := e.txn.Replace(offset, oldLen, newText)
	b.mu.Unlock()

	if errors.Is(err, ErrInvariant) {
		b.invariant(doc, err)
	}
	return err
}

// IsSynchronizing reports whether edits are currently being written into
// the document by the bridge.
func (b *Bridge) IsSynchronizing(id document.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncing[id] > 0
}

// IsOpen reports whether a transaction is open for the document.
func (b *Bridge) IsOpen(id document.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.open[id]
	return ok
}

// Pending returns the fragments of the document's open transaction.
func (b *Bridge) Pending(id document.ID) []Fragment {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.open[id]; ok {
		return e.txn.Fragments()
	}
	return nil
}

// Discard drops the document's open transaction without committing it.
// Outstanding guards become no-ops.
func (b *Bridge) Discard(id document.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.open, id)
}

// release is called by the guard; the last release commits.
func (b *Bridge) release(e *entry) error {
	doc := e.doc
	b.mu.Lock()
	if b.open[doc.ID()] != e {
		// discarded
		b.mu.Unlock()
		return nil
	}
	e.depth--
	if e.depth > 0 {
		b.mu.Unlock()
		return nil
	}
	delete(b.open, doc.ID())
	b.mu.Unlock()

	err := b.synchronize(doc, func() error {
		return e.txn.Commit(doc)
	})
	if err != nil {
		b.logger.Error("transaction commit failed",
			"doc", doc.ID(), "name", doc.Name(), "fragments", len(e.txn.frags), "error", err)
		if errors.Is(err, ErrInvariant) {
			b.invariant(doc, err)
		}
		return err
	}

	b.logger.Debug("transaction committed",
		"doc", doc.ID(), "fragments", len(e.txn.frags))
	return nil
}

// synchronize runs fn with the document's synchronizing flag raised.
func (b *Bridge) synchronize(doc *document.Document, fn func() error) error {
	id := doc.ID()
	b.mu.Lock()
	b.syncing[id]++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.syncing[id]--; b.syncing[id] == 0 {
			delete(b.syncing, id)
		}
		b.mu.Unlock()
	}()

	return fn()
}

func (b *Bridge) invariant(doc *document.Document, err error) {
	b.logger.Error("transaction invariant violated",
		"doc", doc.ID(), "name", doc.Name(), "error", err, "stack", stackOf(err))
	if b.onInvariant != nil {
		b.onInvariant(doc, err)
	}
}

// Guard is a scoped handle on a transaction. Close is idempotent.
type Guard struct {
	bridge *Bridge
	entry  *entry
	once   sync.Once
	err    error
}

// Close releases the handle and commits when it was the outermost one.
func (g *Guard) Close() error {
	g.once.Do(func() {
		g.err = g.bridge.release(g.entry)
	})
	return g.err
}
