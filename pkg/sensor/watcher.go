package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EnqueueFunc delivers a watched file's contents as a percept. The
// engine supplies its locked enqueue entry point here.
type EnqueueFunc func(sensorName, content string) error

// Watcher feeds directory-ingress sensors: files created or written
// under a sensor's directory are read (debounced) and enqueued as one
// percept each.
type Watcher struct {
	sensorName string
	dir        string
	enqueue    EnqueueFunc

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timers  map[string]*time.Timer
	closed  bool
}

const watchDebounce = 100 * time.Millisecond

// NewWatcher creates a watcher for one directory-ingress sensor.
func NewWatcher(sn *Sensor, enqueue EnqueueFunc) (*Watcher, error) {
	if sn.Ingress.Mode != IngressDirectory {
		return nil, fmt.Errorf("sensor %q is not directory ingress", sn.Name)
	}
	dir, err := filepath.Abs(sn.Ingress.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}
	return &Watcher{
		sensorName: sn.Name,
		dir:        dir,
		enqueue:    enqueue,
		timers:     make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. It creates the directory when absent and runs
// until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory %s: %w", w.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}
	w.watcher = watcher

	go w.watchLoop(ctx, watcher)

	slog.Info("watching sensor directory", "sensor", w.sensorName, "dir", w.dir)
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleIngest(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("sensor watcher error", "sensor", w.sensorName, "error", err)
		}
	}
}

// scheduleIngest debounces per file so a burst of writes lands as one
// percept.
func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(watchDebounce, func() {
		w.ingest(path)
	})
}

func (w *Watcher) ingest(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read watched file", "sensor", w.sensorName, "path", path, "error", err)
		return
	}
	if err := w.enqueue(w.sensorName, string(data)); err != nil {
		slog.Warn("failed to enqueue watched file", "sensor", w.sensorName, "path", path, "error", err)
		return
	}
	slog.Debug("ingested watched file", "sensor", w.sensorName, "path", path, "bytes", len(data))
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}
	return nil
}
