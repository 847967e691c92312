package dirty

import "log/slog"

// Option configures a Range.
type Option func(*Range)

// WithStrict makes an edit recorded while locked panic instead of being
// ignored with a warning. Use it in debug builds and tests.
func WithStrict(strict bool) Option {
	return func(r *Range) {
		r.strict = strict
	}
}

// WithLogger sets the logger used for contract warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Range) {
		if l != nil {
			r.logger = l
		}
	}
}
