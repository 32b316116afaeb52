// Package watch monitors the workspace state directory and reports file
// changes, debounced, to a callback. It powers `ralph watch`.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces rapid successive writes to the same file.
const DefaultDebounce = 250 * time.Millisecond

// Event is a debounced state-file change notification.
type Event struct {
	Path string
	Name string // base name of the changed state file
	Op   string
	At   time.Time
}

// Watcher monitors the state directory for changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	notify   func(Event)

	watcher *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	mu      sync.RWMutex

	pending   map[string]Event
	pendingMu sync.Mutex
}

// NewWatcher creates a watcher over the given state directory.
func NewWatcher(stateDir string, notify func(Event)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		dir:      stateDir,
		debounce: DefaultDebounce,
		notify:   notify,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
		pending:  map[string]Event{},
	}, nil
}

// Start begins watching for state changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	go w.processEvents()
	go w.processDebounced()

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	return w.watcher.Close()
}

// IsRunning returns whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			// Atomic writes land via temp files; report the target only.
			if name == "" || name[0] == '.' || strings.Contains(name, ".tmp-") {
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = Event{
				Path: event.Name,
				Name: name,
				Op:   event.Op.String(),
				At:   time.Now(),
			}
			w.pendingMu.Unlock()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) processDebounced() {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	events := make([]Event, 0, len(w.pending))
	cutoff := time.Now().Add(-w.debounce)
	for path, ev := range w.pending {
		if ev.At.Before(cutoff) {
			events = append(events, ev)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, ev := range events {
		if w.notify != nil {
			w.notify(ev)
		}
	}
}
