// Package diag keeps a bounded in-memory log of recent events.
//
// Ring is an slog.Handler. Installed next to the console handler it
// records stage transitions, queue activity and failures at debug level
// without printing them, and Dump renders them on demand (for example
// after a test failure or with the CLI's --diag flag). The oldest entries
// are dropped once the retained text exceeds the byte limit.
package diag
