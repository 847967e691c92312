package commit

import (
	"log/slog"
	"time"
)

// Default scheduler settings.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultSyncRetries  = 3
	maxRetryDelay       = 2 * time.Second
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPollInterval sets how often Shutdown checks the worker, and the base
// delay before a failed reparse is retried.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithSyncRetries sets how often a synchronous commit retries when the
// document moves between its reparse and its apply.
func WithSyncRetries(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.syncRetries = n
		}
	}
}

// WithTable makes the scheduler use t instead of a private table.
func WithTable(t *Table) Option {
	return func(s *Scheduler) {
		if t != nil {
			s.table = t
		}
	}
}
