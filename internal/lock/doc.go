// Package lock provides the exclusive write section shared by a session.
//
// Readers of document and tree state run concurrently under Read; applying
// a reparse result and synchronous commits run under Write, which excludes
// every reader and every other writer. Write hands its callback a *Writer
// token; code that must only run inside the write section takes that token
// and checks it with Holds, so being called while some other goroutine
// writes is not enough.
package lock
