// Package logging builds the process logger: a colourised console handler
// fanned out with any number of extra handlers, typically the diagnostics
// ring.
package logging
