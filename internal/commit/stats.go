package commit

import "sync/atomic"

// Stats counts scheduler events since construction.
type Stats struct {
	Enqueued  uint64
	Coalesced uint64
	Dequeued  uint64
	Committed uint64
	Cancelled uint64
	Stale     uint64
	Failed    uint64
	Invariant uint64
}

type counters struct {
	enqueued  atomic.Uint64
	coalesced atomic.Uint64
	dequeued  atomic.Uint64
	committed atomic.Uint64
	cancelled atomic.Uint64
	stale     atomic.Uint64
	failed    atomic.Uint64
	invariant atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Enqueued:  c.enqueued.Load(),
		Coalesced: c.coalesced.Load(),
		Dequeued:  c.dequeued.Load(),
		Committed: c.committed.Load(),
		Cancelled: c.cancelled.Load(),
		Stale:     c.stale.Load(),
		Failed:    c.failed.Load(),
		Invariant: c.invariant.Load(),
	}
}
