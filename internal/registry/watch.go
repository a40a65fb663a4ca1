package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/doridoridoriand/fastping/internal/log"
)

const DefaultDebounce = 200 * time.Millisecond

// Watch follows edits to the store file until ctx is done and calls onEdit
// once per burst of events. The directory is watched rather than the file
// because atomic writers, this package included, replace the file by rename.
// onEdit is expected to call Reload under whatever lock serializes the
// registry's other mutations; the registry's own writes also trigger it and
// Reload then reports no change.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration, logger *log.Logger, onEdit func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry watch: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(r.path)
	if err != nil {
		return fmt.Errorf("registry watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("registry watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.LogError("registry", err, map[string]interface{}{"path": abs})

		case <-timer.C:
			logger.Debug("store edited", map[string]interface{}{"path": abs})
			onEdit()
		}
	}
}
