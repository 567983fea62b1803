// Package watcher monitors a project tree for code changes.
//
// fsnotify delivers raw events per directory; this package adds the two
// things Umbra needs on top: recursive coverage (directories are added to
// the watch set as they appear) and debouncing (a burst of saves to the
// same file collapses into one callback after a quiet period).
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/umbra-dev/umbra/internal/scan"
)

// EventType classifies a file change.
type EventType string

const (
	Created  EventType = "created"
	Modified EventType = "modified"
	Deleted  EventType = "deleted"
)

// Event is a debounced file change.
type Event struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Callback receives flushed events.
type Callback func(Event)

// Watcher watches a directory tree with debouncing.
type Watcher struct {
	root     string
	callback Callback
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]Event
	order   []string
	timer   *time.Timer
	fsw     *fsnotify.Watcher
	done    chan struct{}
	running bool
}

// New creates a watcher for root. The callback runs on the watcher's
// goroutine; long work should be handed off by the caller.
func New(root string, callback Callback, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		root:     abs,
		callback: callback,
		debounce: debounce,
		pending:  make(map[string]Event),
	}, nil
}

// Start begins watching. Returns an error when already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if err := addRecursive(fsw, w.root); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.running = true

	go w.loop(fsw, w.done)
	return nil
}

// Stop halts watching and cancels any pending flush. Safe to call twice.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.done)
	w.fsw.Close()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = make(map[string]Event)
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if scan.IgnoreDirs[d.Name()] && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, ev)
		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Watch errors (overflow, removed roots) are not actionable
			// mid-session; the next scan will resynchronize state.
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	// New directories must join the watch set before files land in them.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !scan.IgnoreDirs[filepath.Base(ev.Name)] {
				_ = addRecursive(fsw, ev.Name)
			}
			return
		}
	}

	if scan.Ignored(ev.Name) {
		return
	}

	var et EventType
	switch {
	case ev.Op.Has(fsnotify.Create):
		et = Created
	case ev.Op.Has(fsnotify.Write):
		et = Modified
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		et = Deleted
	default:
		return // chmod-only events are noise
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	// Later events for the same file replace earlier ones, except that a
	// create followed by writes within the window stays a create. A file
	// keeps its original position in the flush order.
	prev, seen := w.pending[ev.Name]
	if seen && prev.Type == Created && et == Modified {
		et = Created
	}
	if !seen {
		w.order = append(w.order, ev.Name)
	}
	w.pending[ev.Name] = Event{Path: ev.Name, Type: et, Timestamp: time.Now()}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

// flush delivers pending events in arrival order.
func (w *Watcher) flush() {
	w.mu.Lock()
	events := make([]Event, 0, len(w.pending))
	for _, path := range w.order {
		events = append(events, w.pending[path])
	}
	w.pending = make(map[string]Event)
	w.order = nil
	w.timer = nil
	running := w.running
	w.mu.Unlock()

	if !running {
		return
	}
	for _, ev := range events {
		w.callback(ev)
	}
}
