// Package watch re-runs a callback when watched pipeline files change.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into one callback.
const DefaultDebounce = 250 * time.Millisecond

// Config controls a Watcher.
type Config struct {
	// Logger for watch events. Discards if nil.
	Logger *slog.Logger

	// Debounce is how long to wait after the last event before firing.
	// Defaults to DefaultDebounce.
	Debounce time.Duration

	// Extensions filters directory events to these file extensions
	// (dot included, e.g. ".flow"). Files added with AddFile always
	// match regardless.
	Extensions []string
}

// Watcher invokes a callback when watched paths change, coalescing
// bursts of events into one invocation.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
	files    map[string]bool
	exts     map[string]bool
}

// New creates a Watcher from cfg.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	exts := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Watcher{
		fsw:      fsw,
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]bool),
		exts:     exts,
	}, nil
}

// AddFile watches a single file through its parent directory. Editors
// that replace the file on save would otherwise detach a direct watch.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.files[abs] = true
	return w.fsw.Add(filepath.Dir(abs))
}

// AddDir watches every matching file in a directory.
func (w *Watcher) AddDir(dir string) error {
	return w.fsw.Add(dir)
}

// Close stops the underlying watcher. Run returns after Close.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is done or the watcher is closed, invoking fn
// with the changed path after each debounced burst.
func (w *Watcher) Run(ctx context.Context, fn func(path string)) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			path := event.Name
			timer = time.AfterFunc(w.debounce, func() { fn(path) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// matches reports whether an event path passes the file and extension
// filters. With no filters configured every path matches.
func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	if len(w.exts) > 0 {
		return w.exts[strings.ToLower(filepath.Ext(name))]
	}
	return len(w.files) == 0
}
