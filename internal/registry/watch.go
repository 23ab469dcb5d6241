package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls back after watched files change, absorbing rapid editor
// write bursts. NewRosterWatcher binds one to a Registry for hot reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
}

// NewWatcher watches a set of existing files and calls onChange 500ms
// after the last write to any of them.
func NewWatcher(paths []string, onChange func()) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("registry: create file watcher: %w", err)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("registry: stat %q: %w", path, err)
		}
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("registry: watch %q: %w", path, err)
		}
	}
	return &Watcher{watcher: watcher, onChange: onChange}, nil
}

// NewRosterWatcher hot-reloads reg from the roster file at path. onReload
// is called after every reload attempt (nil error on success); it may be
// nil. A failed reload keeps the last good roster in effect.
func NewRosterWatcher(reg *Registry, path string, onReload func(err error)) (*Watcher, error) {
	return NewWatcher([]string{path}, func() {
		roster, err := LoadRoster(path)
		if err == nil {
			reg.Replace(roster)
		}
		if onReload != nil {
			onReload(err)
		}
	})
}

// Run watches for changes and invokes the callback. Blocks until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// Debounce: wait 500ms after last write before firing
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.NewTimer(500 * time.Millisecond)
				fire = debounce.C
			}

		case <-fire:
			fire = nil
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("registry: watcher error: %w", err)
		}
	}
}
