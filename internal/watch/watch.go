// Package watch monitors an intake directory and hands newly landed
// point-cloud files to a handler once they stop growing.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/johns/lascheck/internal/discover"
)

// Run watches dir until the watcher is closed or fails. Each candidate
// file is passed to handle after no write has touched it for settle;
// uploads in progress fire create and write events long before the file
// is complete.
func Run(dir string, settle time.Duration, handle func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var (
		mu      sync.Mutex
		pending = map[string]*time.Timer{}
	)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !discover.IsCandidate(filepath.Base(ev.Name)) {
				continue
			}

			mu.Lock()
			if t, exists := pending[ev.Name]; exists {
				t.Stop()
			}
			name := ev.Name
			pending[name] = time.AfterFunc(settle, func() {
				mu.Lock()
				delete(pending, name)
				mu.Unlock()
				handle(name)
			})
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}
