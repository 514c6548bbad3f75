// Package watch re-trains a chatbot when its FAQ source file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the event bursts editors produce when saving.
const DefaultDebounce = 2 * time.Second

// Watcher monitors one FAQ source file and invokes the registered callback
// with the file's contents after each change settles. The parent directory
// is watched rather than the file itself, because editors typically replace
// the file on save.
type Watcher struct {
	path     string
	onChange func(ctx context.Context, text string)
	debounce time.Duration
}

// New creates a Watcher for path. onChange receives the file's new contents
// after each debounced change.
func New(path string, onChange func(ctx context.Context, text string)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// Run watches the file until ctx is cancelled. The initial file contents are
// not delivered; only subsequent changes fire the callback. Returns nil on
// context cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	slog.Info("watching for changes", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create):
				timer.Reset(w.debounce)
				timerC = timer.C
			case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
				slog.Warn("watched file removed, waiting for it to reappear", "path", w.path)
			}

		case <-timerC:
			timerC = nil
			w.fire(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("reading watched file", "path", w.path, "error", err)
		return
	}
	slog.Info("file changed, re-training", "path", w.path, "bytes", len(data))
	w.onChange(ctx, string(data))
}
