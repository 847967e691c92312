package transaction

import (
	"fmt"
	"log/slog"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithPolicy sets the boundary policy used by new transactions.
func WithPolicy(p BoundaryPolicy) Option {
	return func(b *Bridge) {
		b.policy = p
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithInvariantHandler sets the hook told about broken transactions.
func WithInvariantHandler(h InvariantHandler) Option {
	return func(b *Bridge) {
		b.onInvariant = h
	}
}

// stackOf renders err with the stack recorded by github.com/pkg/errors.
func stackOf(err error) string {
	return fmt.Sprintf("%+v", err)
}
