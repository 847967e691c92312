// Package config loads treesync settings.
//
// Settings come from three layers, later ones overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment (TREESYNC_) │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. TOML file               │
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// A missing file is not an error. Unknown keys are.
//
//	cfg, err := config.Load("treesync.toml")
//	if err != nil {
//	    return err
//	}
//
// Watcher reports changes to the config file, or to any other file, with
// rapid bursts of writes coalesced into one event.
package config
