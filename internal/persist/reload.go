package persist

import (
	"context"
	"errors"

	"github.com/bassista/go_persist/internal/logger"
	"github.com/bassista/go_persist/internal/repository"
)

// ErrUnpersistedChanges is returned by Reload when the in-memory value has
// changes that would be lost.
var ErrUnpersistedChanges = errors.New("value has unpersisted changes")

// Reload replaces the value from the location unless the content equals the
// last persisted or loaded bytes, or the value has unpersisted changes. It
// reports whether the value was replaced.
func (s *Shared[T]) Reload(ctx context.Context) (bool, error) {
	return s.load(ctx, true)
}

// ReloadOnChange watches the location and reloads the value when another
// process rewrites it. Reload failures are logged; the watcher keeps running
// until ctx is cancelled.
func (s *Shared[T]) ReloadOnChange(ctx context.Context) error {
	log := logger.WithLocation("watch", s.location)

	return repository.Watch(ctx, s.location, repository.DefaultDebounce, func() {
		reloaded, err := s.Reload(ctx)
		switch {
		case errors.Is(err, ErrUnpersistedChanges):
			// the pending changes will be written over the disk content soon anyway
			log.Warn("location changed but value has unpersisted changes; skipping reload")
		case err != nil:
			log.Errorf("reload failed: %v", err)
		case reloaded:
			log.Info("value reloaded from location")
		default:
			log.Trace("location content unchanged")
		}
	})
}
