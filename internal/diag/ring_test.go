package diag

import (
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingRecords(t *testing.T) {
	r := NewRing()
	log := slog.New(r).With("component", "commit")

	log.Debug("enqueued", "doc", "a.txt", "reason", "edit")
	log.WithGroup("task").Info("committed", "stamp", 7)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, `level=DEBUG msg=enqueued component=commit doc=a.txt reason=edit`, entries[0].Line)
	assert.Equal(t, `level=INFO msg=committed component=commit task.stamp=7`, entries[1].Line)

	dump := r.Dump()
	assert.Contains(t, dump, "msg=enqueued")
	assert.Equal(t, 2, strings.Count(dump, "\n"))
}

func TestRingLevel(t *testing.T) {
	r := NewRing(WithLevel(slog.LevelWarn))
	log := slog.New(r)

	log.Info("ignored")
	log.Warn("kept")

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Line, "msg=kept")
}

func TestRingLimit(t *testing.T) {
	r := NewRing(WithLimit(100))
	log := slog.New(r)

	for i := 0; i < 50; i++ {
		log.Info("event", "n", i)
	}

	assert.LessOrEqual(t, r.Size(), 100)
	assert.Positive(t, r.Dropped())
	entries := r.Entries()
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Line, "n=49")
	assert.Equal(t, 50, len(entries)+r.Dropped())
	assert.True(t, strings.HasPrefix(r.Dump(), "... "))

	r.Reset()
	assert.Empty(t, r.Entries())
	assert.Zero(t, r.Size())
	assert.Equal(t, "", r.Dump())
}

func TestRingKeepsOversizedEntry(t *testing.T) {
	r := NewRing(WithLimit(10))
	slog.New(r).Info("a message longer than the limit")

	require.Len(t, r.Entries(), 1)
	assert.Zero(t, r.Dropped())
}

func TestRingOrderedIDs(t *testing.T) {
	r := NewRing()
	log := slog.New(r)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				log.Debug("tick", "worker", i)
			}
		}()
	}
	wg.Wait()

	entries := r.Entries()
	require.Len(t, entries, 800)
	for i := 1; i < len(entries); i++ {
		require.Equal(t, -1, entries[i-1].ID.Compare(entries[i].ID))
	}
}
