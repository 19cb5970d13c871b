package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_persist/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of filesystem events into a single callback.
const DefaultDebounce = 200 * time.Millisecond

// Watch calls onChange after the file at loc is written, created, replaced or
// removed. It watches the parent directory (not the file) so that replace
// sequences performed by other tools are still observed, filters events by
// base name and debounces them. The caller owns ctx: cancel it to stop the
// goroutine and close the watcher.
func Watch(ctx context.Context, loc Location, debounce time.Duration, onChange func()) error {
	if loc == "" {
		return &IoError{Op: OpWatch, Location: loc, Err: ErrEmptyLocation}
	}
	if onChange == nil {
		return errors.New("onChange callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dir, err := filepath.Abs(loc.Dir())
	if err != nil {
		return &IoError{Op: OpWatch, Location: loc, Err: err}
	}
	base := loc.Base()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &IoError{Op: OpWatch, Location: loc, Err: err}
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return &IoError{Op: OpWatch, Location: loc, Err: err}
	}

	log := logger.WithLocation("watch", loc)
	log.Debugf("watching %s for changes to %s", dir, base)

	go func() {
		defer watcher.Close()

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		schedule := func() {
			mu.Lock()
			defer mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, onChange)
		}
		defer func() {
			mu.Lock()
			defer mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				log.Debug("watcher stopped")
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Tracef("event %s", event.Op)
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
