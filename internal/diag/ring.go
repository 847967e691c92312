package diag

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Entry is one recorded log line.
type Entry struct {
	// ID orders entries and carries their time.
	ID ulid.ULID

	// Line is the record in logfmt, without the time.
	Line string
}

// String returns the entry as it appears in Dump.
func (e Entry) String() string {
	return ulid.Time(e.ID.Time()).Format("15:04:05.000") + " " + e.Line
}

// Ring is an slog.Handler retaining the most recent records in memory.
// Handlers derived with WithAttrs and WithGroup share the same storage.
type Ring struct {
	store *store
	level slog.Leveler
	text  slog.Handler
}

// NewRing creates a ring.
func NewRing(opts ...Option) *Ring {
	r := &Ring{
		store: &store{
			limit:   DefaultLimit,
			entropy: ulid.Monotonic(rand.Reader, 0),
		},
		level: slog.LevelDebug,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.text = slog.NewTextHandler(r.store, &slog.HandlerOptions{
		Level: r.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return r
}

// Enabled implements slog.Handler.
func (r *Ring) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level.Level()
}

// Handle implements slog.Handler.
func (r *Ring) Handle(ctx context.Context, rec slog.Record) error {
	return r.text.Handle(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (r *Ring) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Ring{store: r.store, level: r.level, text: r.text.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (r *Ring) WithGroup(name string) slog.Handler {
	return &Ring{store: r.store, level: r.level, text: r.text.WithGroup(name)}
}

// Entries returns the retained entries, oldest first.
func (r *Ring) Entries() []Entry {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Dropped returns how many entries were evicted to respect the limit.
func (r *Ring) Dropped() int {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Size returns the number of bytes of log text retained.
func (r *Ring) Size() int {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Reset drops every entry.
func (r *Ring) Reset() {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.size = 0
	s.dropped = 0
}

// Dump renders the retained entries, one per line.
func (r *Ring) Dump() string {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	if s.dropped > 0 {
		fmt.Fprintf(&sb, "... %d earlier entries dropped\n", s.dropped)
	}
	for _, e := range s.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// store receives one Write per record from the text handler.
type store struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	limit   int
	dropped int
	entropy *ulid.MonotonicEntropy
}

func (s *store) Write(p []byte) (int, error) {
	line := strings.TrimSuffix(string(p), "\n")

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := ulid.New(ulid.Now(), s.entropy)
	if err != nil {
		// monotonic entropy exhausted within one millisecond
		id = ulid.Make()
	}
	s.entries = append(s.entries, Entry{ID: id, Line: line})
	s.size += len(line)

	// the newest entry is always kept
	for s.size > s.limit && len(s.entries) > 1 {
		s.size -= len(s.entries[0].Line)
		s.entries[0] = Entry{}
		s.entries = s.entries[1:]
		s.dropped++
	}
	return len(p), nil
}
