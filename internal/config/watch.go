package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentmem/agentmem/internal/apperr"
)

// Watcher re-loads and re-validates the deployment YAML file on disk
// whenever it changes, the same debounced fsnotify.Watcher shape the
// teacher's watchIssues uses to re-display issues on file writes. A
// process that wants hot-reload registers an OnChange callback; a bad
// edit never swaps in a broken Config, the last good Config keeps serving.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	onChange func(*Config)
	onError  func(error)
	logger   *slog.Logger
	done     chan struct{}
}

// WatchOption customises Watch.
type WatchOption func(*Watcher)

// OnChange registers the callback invoked after a successful reload.
func OnChange(fn func(*Config)) WatchOption {
	return func(w *Watcher) { w.onChange = fn }
}

// OnError registers the callback invoked when a reload fails validation;
// the previously loaded Config is left in place.
func OnError(fn func(error)) WatchOption {
	return func(w *Watcher) { w.onError = fn }
}

// WithLogger attaches a logger for best-effort diagnostics.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) { w.logger = logger }
}

// Watch starts watching the directory containing path for writes and
// reloads Config on each debounced change. Callers must call Close when
// done. path must already exist; Watch does not watch for file creation.
func Watch(path string, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "config.Watch", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, apperr.Wrap(apperr.Internal, "config.Watch", err)
	}

	w := &Watcher{path: path, fsw: fsw, done: make(chan struct{})}
	for _, opt := range opts {
		opt(w)
	}

	go w.loop()
	return w, nil
}

const debounceDelay = 300 * time.Millisecond

func (w *Watcher) loop() {
	base := filepath.Base(w.path)
	var timer *time.Timer

	reload := func() {
		cfg, err := Load(w.path)
		if err != nil {
			if w.onError != nil {
				w.onError(err)
			}
			return
		}
		if w.onChange != nil {
			w.onChange(cfg)
		}
	}

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(apperr.Wrap(apperr.Internal, "config.Watch", err))
			} else if w.logger != nil {
				w.logger.Warn("config watcher error", "error", err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
