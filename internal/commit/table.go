package commit

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/treesync/internal/document"
)

// Observer is told about every successful transition. It runs on the
// goroutine that made the transition and must not block.
type Observer func(doc document.ID, from, to Stage)

// Table stores the commit stage of every tracked document.
// All methods are thread-safe.
type Table struct {
	mu        sync.RWMutex
	cells     map[document.ID]*atomic.Int32
	observers []Observer
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{cells: make(map[document.ID]*atomic.Int32)}
}

// Observe registers fn for transition notifications.
func (t *Table) Observe(fn Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Init starts tracking id in the Dirty stage, resetting any previous stage.
func (t *Table) Init(id document.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.cells[id]; ok {
		c.Store(int32(Dirty))
		return
	}
	c := new(atomic.Int32)
	c.Store(int32(Dirty))
	t.cells[id] = c
}

// Forget stops tracking id.
func (t *Table) Forget(id document.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cells, id)
}

// Load returns the stage of id and whether id is tracked.
func (t *Table) Load(id document.ID) (Stage, bool) {
	c := t.cell(id)
	if c == nil {
		return Dirty, false
	}
	return Stage(c.Load()), true
}

// CompareAndSwap moves id from expected to next. It fails, leaving the
// stage unchanged, when id is untracked, the stage is not expected, or the
// transition is not defined.
func (t *Table) CompareAndSwap(id document.ID, expected, next Stage) bool {
	if !Legal(expected, next) {
		return false
	}
	c := t.cell(id)
	if c == nil || !c.CompareAndSwap(int32(expected), int32(next)) {
		return false
	}

	t.mu.RLock()
	observers := t.observers
	t.mu.RUnlock()
	for _, fn := range observers {
		fn(id, expected, next)
	}
	return true
}

// Requeue moves id to QueuedToCommit from whatever stage it is in and
// returns that stage.
func (t *Table) Requeue(id document.ID) (Stage, bool) {
	for {
		cur, ok := t.Load(id)
		if !ok {
			return cur, false
		}
		if t.CompareAndSwap(id, cur, QueuedToCommit) {
			return cur, true
		}
	}
}

func (t *Table) cell(id document.ID) *atomic.Int32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cells[id]
}
