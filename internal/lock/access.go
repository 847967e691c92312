package lock

import (
	"sync"
	"sync/atomic"
)

// Access is a process-wide read/write section. The zero value is ready.
type Access struct {
	mu     sync.RWMutex
	holder atomic.Pointer[Writer]
}

// Writer is the token of one Write call. Code that must run inside the
// write section takes a *Writer and checks it with Holds; the token is
// void once its Write call returns.
type Writer struct {
	access *Access
}

// Write runs fn exclusively and hands it the section's token.
func (a *Access) Write(fn func(w *Writer)) {
	a.mu.Lock()
	w := &Writer{access: a}
	a.holder.Store(w)
	defer func() {
		a.holder.Store(nil)
		a.mu.Unlock()
	}()
	fn(w)
}

// WriteErr runs fn exclusively and returns its error.
func (a *Access) WriteErr(fn func(w *Writer) error) error {
	var err error
	a.Write(func(w *Writer) { err = fn(w) })
	return err
}

// Read runs fn concurrently with other readers.
func (a *Access) Read(fn func()) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	fn()
}

// Holds reports whether w is the token of the write section running now.
// A nil token, a token from an earlier Write and a token of another Access
// all fail.
func (a *Access) Holds(w *Writer) bool {
	return w != nil && w.access == a && a.holder.Load() == w
}
