package session

import (
	"context"
	"sync"

	"github.com/dshills/treesync/internal/document"
)

// WaitCommitted blocks until the document's tree reflects its text, the
// document is closed, the session shuts down or ctx is done.
func (s *Session) WaitCommitted(ctx context.Context, id document.ID) error {
	for {
		ch := s.waiters.wait(id)
		if !s.Alive() {
			return ErrClosed
		}
		e, err := s.lookup(id)
		if err != nil {
			return err
		}
		if s.committed(e) {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// waiters hands out one channel per document that is closed on the next
// notification.
type waiters struct {
	mu sync.Mutex
	ch map[document.ID]chan struct{}
}

func (w *waiters) wait(id document.ID) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ch == nil {
		w.ch = make(map[document.ID]chan struct{})
	}
	ch, ok := w.ch[id]
	if !ok {
		ch = make(chan struct{})
		w.ch[id] = ch
	}
	return ch
}

func (w *waiters) notify(id document.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ch, ok := w.ch[id]; ok {
		close(ch)
		delete(w.ch, id)
	}
}

func (w *waiters) notifyAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.ch {
		close(ch)
		delete(w.ch, id)
	}
}
