package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds every treesync setting.
type Config struct {
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Logging     LoggingConfig     `toml:"logging"`
	Policy      PolicyConfig      `toml:"policy"`
	Parser      ParserConfig      `toml:"parser"`
}

// SchedulerConfig configures background commits.
type SchedulerConfig struct {
	// PollInterval is the shutdown poll interval and base retry delay.
	PollInterval Duration `toml:"poll_interval"`

	// ShutdownTimeout bounds how long shutdown waits for the worker.
	ShutdownTimeout Duration `toml:"shutdown_timeout"`

	// SyncRetries bounds synchronous commit retries against a moving
	// document.
	SyncRetries int `toml:"sync_retries"`

	// Strict turns contract violations into panics.
	Strict bool `toml:"strict"`
}

// DiagnosticsConfig configures the in-memory diagnostics log.
type DiagnosticsConfig struct {
	// RingBytes is how much log text the ring retains.
	RingBytes int `toml:"ring_bytes"`
}

// LoggingConfig configures console logging.
type LoggingConfig struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

// PolicyConfig selects the boundary policies for tree-side edits.
type PolicyConfig struct {
	// Markup enables the markup adjacency guard.
	Markup bool `toml:"markup"`

	// Script is a Lua file defining adjust(before, old, new, after, start, end).
	Script string `toml:"script"`

	// ScriptTimeout bounds a single call into the script.
	ScriptTimeout Duration `toml:"script_timeout"`
}

// ParserConfig selects the reparse service.
type ParserConfig struct {
	// Language forces a tree-sitter grammar. Empty picks one from the file
	// extension; "line" selects the line tree.
	Language string `toml:"language"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			PollInterval:    Duration{10 * time.Millisecond},
			ShutdownTimeout: Duration{5 * time.Second},
			SyncRetries:     3,
		},
		Diagnostics: DiagnosticsConfig{
			RingBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Policy: PolicyConfig{
			ScriptTimeout: Duration{50 * time.Millisecond},
		},
	}
}

// Load returns the defaults overridden by the TOML file at path (when it
// exists) and by TREESYNC_ environment variables, validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := cfg.decode(path, data); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse returns the defaults overridden by TOML data. The environment is
// not consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode("<input>", data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(source string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		perr := &ParseError{Source: source, Err: err}
		var derr *toml.DecodeError
		var serr *toml.StrictMissingError
		switch {
		case errors.As(err, &derr):
			perr.Line, perr.Column = derr.Position()
		case errors.As(err, &serr) && len(serr.Errors) > 0:
			perr.Line, perr.Column = serr.Errors[0].Position()
		}
		return perr
	}
	return nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var problems []string
	if c.Scheduler.PollInterval.Duration <= 0 {
		problems = append(problems, "scheduler.poll_interval must be positive")
	}
	if c.Scheduler.ShutdownTimeout.Duration <= 0 {
		problems = append(problems, "scheduler.shutdown_timeout must be positive")
	}
	if c.Scheduler.SyncRetries < 0 {
		problems = append(problems, "scheduler.sync_retries must not be negative")
	}
	if c.Diagnostics.RingBytes < 0 {
		problems = append(problems, "diagnostics.ring_bytes must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if c.Policy.ScriptTimeout.Duration <= 0 {
		problems = append(problems, "policy.script_timeout must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(problems, "; "))
	}
	return nil
}

// Duration is a time.Duration written as a string ("250ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
