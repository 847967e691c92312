package diag

import "log/slog"

// DefaultLimit is the default number of bytes of log text a Ring retains.
const DefaultLimit = 1 << 20

// Option configures a Ring.
type Option func(*Ring)

// WithLimit sets the number of bytes of log text retained.
func WithLimit(n int) Option {
	return func(r *Ring) {
		if n > 0 {
			r.store.limit = n
		}
	}
}

// WithLevel sets the minimum level recorded. The default is debug.
func WithLevel(level slog.Leveler) Option {
	return func(r *Ring) {
		if level != nil {
			r.level = level
		}
	}
}
