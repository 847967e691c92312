package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TREESYNC_"

// envSetters maps environment variables to the setting they override.
var envSetters = map[string]func(c *Config, v string) error{
	"TREESYNC_POLL_INTERVAL":    durationSetter(func(c *Config) *Duration { return &c.Scheduler.PollInterval }),
	"TREESYNC_SHUTDOWN_TIMEOUT": durationSetter(func(c *Config) *Duration { return &c.Scheduler.ShutdownTimeout }),
	"TREESYNC_SYNC_RETRIES":     intSetter(func(c *Config) *int { return &c.Scheduler.SyncRetries }),
	"TREESYNC_STRICT":           boolSetter(func(c *Config) *bool { return &c.Scheduler.Strict }),
	"TREESYNC_RING_BYTES":       intSetter(func(c *Config) *int { return &c.Diagnostics.RingBytes }),
	"TREESYNC_LOG_LEVEL":        stringSetter(func(c *Config) *string { return &c.Logging.Level }),
	"TREESYNC_NO_COLOR":         boolSetter(func(c *Config) *bool { return &c.Logging.NoColor }),
	"TREESYNC_POLICY_MARKUP":    boolSetter(func(c *Config) *bool { return &c.Policy.Markup }),
	"TREESYNC_POLICY_SCRIPT":    stringSetter(func(c *Config) *string { return &c.Policy.Script }),
	"TREESYNC_POLICY_TIMEOUT":   durationSetter(func(c *Config) *Duration { return &c.Policy.ScriptTimeout }),
	"TREESYNC_PARSER_LANGUAGE":  stringSetter(func(c *Config) *string { return &c.Parser.Language }),
}

// EnvVars returns the recognised environment variables, sorted.
func EnvVars() []string {
	names := make([]string, 0, len(envSetters))
	for name := range envSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overrides settings from environment variables found by lookup.
// An empty value is a valid value, not an unset variable.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, name := range EnvVars() {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := envSetters[name](c, v); err != nil {
			return &ParseError{Source: name, Err: err}
		}
	}
	return nil
}

func stringSetter(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(c) = b
		return nil
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*field(c) = n
		return nil
	}
}

func durationSetter(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q", v)
		}
		field(c).Duration = d
		return nil
	}
}
