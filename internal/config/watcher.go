package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before its change is
// reported.
const DefaultDebounce = 100 * time.Millisecond

// Event reports a change to a watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op combines every operation seen during the debounce window.
	Op fsnotify.Op
}

// Watcher reports changes to individual files. It watches the parent
// directory of each file so that editors replacing a file by rename are
// noticed too.
type Watcher struct {
	fsw    *fsnotify.Watcher
	delay  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]int
	closed bool

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher with nothing watched yet.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:    fsw,
		delay:  DefaultDebounce,
		logger: slog.New(slog.DiscardHandler),
		files:  make(map[string]bool),
		dirs:   make(map[string]int),
		events: make(chan Event, 16),
		errors: make(chan error, 16),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher")

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add starts watching the file at path. The file need not exist yet.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if w.files[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	return nil
}

// Remove stops watching the file at path.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	if !w.files[abs] {
		return nil
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	if w.dirs[dir]--; w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		return w.fsw.Remove(dir)
	}
	return nil
}

// Events returns the debounced change events. The channel is closed by
// Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns watch errors. The channel is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

type pendingEvent struct {
	op  fsnotify.Op
	due time.Time
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer close(w.errors)
	defer close(w.events)

	pending := make(map[string]*pendingEvent)
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			path := filepath.Clean(ev.Name)
			if !w.watching(path) {
				continue
			}
			p := pending[path]
			if p == nil {
				p = &pendingEvent{}
				pending[path] = p
			}
			p.op |= ev.Op
			p.due = time.Now().Add(w.delay)
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("watch error dropped", "error", err)
			}

		case now := <-timer.C:
			var next time.Duration
			for path, p := range pending {
				if wait := p.due.Sub(now); wait > 0 {
					if next == 0 || wait < next {
						next = wait
					}
					continue
				}
				delete(pending, path)
				w.logger.Debug("file changed", "path", path, "op", p.op)
				select {
				case w.events <- Event{Path: path, Op: p.op}:
				case <-w.done:
					return
				}
			}
			if next > 0 {
				timer.Reset(next)
			}
		}
	}
}
