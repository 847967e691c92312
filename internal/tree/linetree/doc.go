// Package linetree is a small reparse service that groups text into
// blocks of non-blank lines.
//
// It exists to exercise the synchronization core without an external
// parser: it reparses incrementally, reusing every block that lies outside
// the dirty region, and checks its context once per line.
package linetree
