package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// romWatcher calls reload, debounced, whenever the watched ROM file is
// written or replaced.
type romWatcher struct {
	watcher *fsnotify.Watcher
	name    string
	delay   time.Duration
	reload  func()

	mu       sync.Mutex
	debounce *time.Timer
}

// newROMWatcher watches dir for changes to ref. The directory is watched
// rather than the file so atomic replacements are seen.
func newROMWatcher(dir, ref string, delay time.Duration, reload func()) (*romWatcher, error) {
	path := filepath.Join(dir, filepath.FromSlash(ref))
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &romWatcher{watcher: w, name: filepath.Clean(path), delay: delay, reload: reload}, nil
}

func (w *romWatcher) run(ctx context.Context, log *slog.Logger) {
	defer w.watcher.Close()
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("rom changed", "event", event.Op.String())
			w.debounceReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("rom watcher error", "err", err)
		}
	}
}

func (w *romWatcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, w.reload)
}

func (w *romWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
