package editor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// defaultPollInterval is the stat interval used when fsnotify is unavailable.
const defaultPollInterval = 2 * time.Second

// Watcher monitors the editor state file using fsnotify with a polling
// fallback. It watches the parent directory so atomic rename-based writes are
// seen.
type Watcher struct {
	// path is the absolute path to the state file being monitored.
	path string
	// events delivers a signal each time the state file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration

	// mu guards fsw, which is nil when polling.
	mu  sync.Mutex
	fsw *fsnotify.Watcher
}

// NewWatcher creates a Watcher for the state file at path. The parent
// directory is created if missing.
func NewWatcher(path string) (*Watcher, error) {
	return newWatcher(path, defaultPollInterval, false)
}

func newWatcher(path string, pollInterval time.Duration, forcePoll bool) (*Watcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	w := &Watcher{
		path:         path,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}
	if forcePoll {
		w.startPolling()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	if err := fsw.Add(dir); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
		fsw.Close()
		w.startPolling()
		return w, nil
	}

	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when the state file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
			w.fsw = nil
		}
	})
	return err
}

// watch forwards fsnotify events for the state file. On a watcher error it
// closes fsnotify and switches to polling.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.mu.Lock()
			if w.fsw == fsw {
				fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.startPolling()
			return
		}
	}
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	lastMod, lastExists := w.stat()
	go w.poll(lastMod, lastExists)
}

// poll periodically stats the state file and sends a notification when the
// modification time changes or the file appears or disappears. lastMod and
// lastExists are the baseline taken before polling started.
func (w *Watcher) poll(lastMod time.Time, lastExists bool) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			mod, exists := w.stat()
			if exists != lastExists || !mod.Equal(lastMod) {
				lastMod, lastExists = mod, exists
				w.notify()
			}
		}
	}
}

func (w *Watcher) stat() (time.Time, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
