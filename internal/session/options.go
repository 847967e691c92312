package session

import (
	"log/slog"
	"time"

	"github.com/dshills/treesync/internal/commit"
	"github.com/dshills/treesync/internal/transaction"
	"github.com/dshills/treesync/internal/tree"
	"github.com/dshills/treesync/internal/tree/linetree"
)

// ReparserFactory returns the reparse service for a document name.
type ReparserFactory func(name string) (tree.Reparser, error)

// LineTrees is the default factory. Every document gets a line tree.
func LineTrees(string) (tree.Reparser, error) {
	return linetree.New(), nil
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger shared by the session and its components.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReparserFactory sets how reparse services are chosen per document.
func WithReparserFactory(f ReparserFactory) Option {
	return func(s *Session) {
		if f != nil {
			s.reparsers = f
		}
	}
}

// WithPolicy sets the boundary policy for tree-side edits.
func WithPolicy(p transaction.BoundaryPolicy) Option {
	return func(s *Session) {
		s.policy = p
	}
}

// WithPollInterval sets the scheduler poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.schedOpts = append(s.schedOpts, commit.WithPollInterval(d))
	}
}

// WithSyncRetries sets how often a synchronous commit retries against a
// moving document.
func WithSyncRetries(n int) Option {
	return func(s *Session) {
		s.schedOpts = append(s.schedOpts, commit.WithSyncRetries(n))
	}
}

// WithStrict makes contract violations panic instead of being logged.
func WithStrict(strict bool) Option {
	return func(s *Session) {
		s.strict = strict
	}
}

// WithObserver registers fn for every stage transition.
func WithObserver(fn commit.Observer) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}
