// Package watch recompiles a source unit whenever its file changes on disk,
// debouncing bursts of filesystem events the way editors' atomic-save
// patterns produce them.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event describes one debounced batch of changes for a single file.
type Event struct {
	Path      string
	Timestamp time.Time
}

// Watcher watches a directory and calls onChange whenever a watched file
// is written or created, debounced by Debounce.
type Watcher struct {
	mu       sync.Mutex
	dir      string
	filename string // base name of the single watched file in dir
	debounce time.Duration
	onChange func(Event)
	onError  func(error)

	fsw   *fsnotify.Watcher
	timer *time.Timer
	stop  chan struct{}
}

// Option configures a Watcher constructed by New.
type Option func(*Watcher)

// WithDebounce overrides the default 100ms debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnError installs a callback for watcher errors (missed events,
// closed channels are not reported here — only fsnotify.Watcher.Errors).
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// New creates a Watcher for a single file at path, calling onChange after
// each debounced burst of write/create events targeting it.
func New(path string, onChange func(Event), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      filepath.Dir(path),
		filename: filepath.Base(path),
		debounce: 100 * time.Millisecond,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It blocks until the underlying fsnotify watcher
// is ready to receive events, then runs the event loop in a goroutine.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}

	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	go w.loop()
	return nil
}

// Stop closes the underlying watcher, ending the event loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		w.fsw.Close()
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleNotify(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) scheduleNotify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.onChange != nil {
			w.onChange(Event{Path: path, Timestamp: time.Now()})
		}
	})
}
