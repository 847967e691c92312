package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Config configures the console handler.
type Config struct {
	// Level is the minimum console level ("debug", "info", "warn", "error").
	Level string

	// NoColor disables ANSI colours.
	NoColor bool

	// Output is where console records go. Defaults to os.Stderr.
	Output io.Writer

	// LevelVar, when set, receives Level and controls the console level,
	// so it can be changed while the logger is in use.
	LevelVar *slog.LevelVar
}

// New creates a logger writing to the console and to every extra handler.
// Each handler filters by its own level.
func New(cfg Config, extra ...slog.Handler) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var level slog.Leveler = ParseLevel(cfg.Level)
	if cfg.LevelVar != nil {
		cfg.LevelVar.Set(level.Level())
		level = cfg.LevelVar
	}
	console := tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	})
	if len(extra) == 0 {
		return slog.New(console)
	}
	return slog.New(Fanout(append([]slog.Handler{console}, extra...)...))
}
