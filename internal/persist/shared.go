package persist

import (
	"context"
	"crypto/sha256"
	"sync"
	"sync/atomic"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/repository"
)

// cell is the storage shared by every clone of a Shared handle.
type cell[T any] struct {
	mu    sync.RWMutex
	value T

	// gen is bumped each time a writer releases the value lock; synced is the
	// generation last known to match the location.
	gen    atomic.Uint64
	synced atomic.Uint64

	// io serializes persist and load so the location never regresses to an
	// older snapshot and a load never interleaves with a write.
	io     sync.Mutex
	digest [sha256.Size]byte // of the bytes last written or loaded, guarded by io
}

func (c *cell[T]) markSynced(gen uint64, data []byte) {
	c.synced.Store(gen)
	c.digest = sha256.Sum256(data)
}

// Shared is a cloneable handle over a lock-protected value and an immutable
// location. Clones observe and mutate the same value.
type Shared[T any] struct {
	cell     *cell[T]
	location repository.Location
	codec    codec.Codec[T]
	store    repository.Store
}

// NewShared creates a handle holding the zero value of T. A nil codec selects
// compact JSON and a nil store selects the filesystem.
func NewShared[T any](loc repository.Location, c codec.Codec[T], store repository.Store) *Shared[T] {
	var zero T
	return NewSharedWith(zero, loc, c, store)
}

// NewSharedWith creates a handle seeded with initial.
func NewSharedWith[T any](initial T, loc repository.Location, c codec.Codec[T], store repository.Store) *Shared[T] {
	c, store = resolveDefaults(c, store)
	cl := &cell[T]{value: initial}
	// never synced until the first persist or load
	cl.gen.Store(1)
	return &Shared[T]{cell: cl, location: loc, codec: c, store: store}
}

// Clone returns another handle sharing the same storage.
func (s *Shared[T]) Clone() *Shared[T] {
	cp := *s
	return &cp
}

func (s *Shared[T]) Location() repository.Location { return s.location }

func (s *Shared[T]) Format() string { return s.codec.Format() }

// IsDirty reports whether the value changed since it was last persisted or loaded.
func (s *Shared[T]) IsDirty() bool {
	return s.cell.gen.Load() != s.cell.synced.Load()
}

// ReadGuard holds the read lock until Unlock. The value must not be used
// after Unlock.
type ReadGuard[T any] struct {
	cell     *cell[T]
	released bool
}

// RLock acquires a read guard. Several read guards may be held at once.
func (s *Shared[T]) RLock() *ReadGuard[T] {
	s.cell.mu.RLock()
	return &ReadGuard[T]{cell: s.cell}
}

func (g *ReadGuard[T]) Value() T { return g.cell.value }

// Unlock releases the guard; further calls are no-ops.
func (g *ReadGuard[T]) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.cell.mu.RUnlock()
}

// WriteGuard holds the exclusive lock until Unlock. Releasing it marks the
// value dirty.
type WriteGuard[T any] struct {
	cell     *cell[T]
	released bool
}

// Lock acquires the write guard, waiting for readers and persists in progress
// to release the value.
func (s *Shared[T]) Lock() *WriteGuard[T] {
	s.cell.mu.Lock()
	return &WriteGuard[T]{cell: s.cell}
}

func (g *WriteGuard[T]) Value() T { return g.cell.value }

// Ptr exposes the value for in-place mutation while the guard is held.
func (g *WriteGuard[T]) Ptr() *T { return &g.cell.value }

func (g *WriteGuard[T]) Set(v T) { g.cell.value = v }

func (g *WriteGuard[T]) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.cell.gen.Add(1)
	g.cell.mu.Unlock()
}

// View runs fn under the read lock.
func (s *Shared[T]) View(fn func(T)) {
	g := s.RLock()
	defer g.Unlock()
	fn(g.Value())
}

// Update runs fn under the write lock.
func (s *Shared[T]) Update(fn func(*T)) {
	g := s.Lock()
	defer g.Unlock()
	fn(g.Ptr())
}

// Get returns a shallow copy of the value. Use Snapshot when T holds maps,
// slices or pointers that the caller may mutate.
func (s *Shared[T]) Get() T {
	g := s.RLock()
	defer g.Unlock()
	return g.Value()
}

// Set replaces the value.
func (s *Shared[T]) Set(v T) {
	g := s.Lock()
	defer g.Unlock()
	g.Set(v)
}

// Modify builds a replacement from the current value under the write lock
// and installs it only when fn succeeds and the codec can encode the result,
// so a value that could never be persisted is never stored. fn must not
// mutate its argument. On failure the value and its dirty state are unchanged.
func (s *Shared[T]) Modify(fn func(current T) (T, error)) error {
	c := s.cell
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.value)
	if err != nil {
		return err
	}
	if _, err := s.codec.Encode(next); err != nil {
		return err
	}
	c.value = next
	c.gen.Add(1)
	return nil
}

// Snapshot returns a deep copy obtained by a codec round trip.
func (s *Shared[T]) Snapshot() (T, error) {
	g := s.RLock()
	data, err := s.codec.Encode(g.Value())
	g.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	return s.codec.Decode(data)
}

// persistOnce encodes the value under a momentary read lock and writes it.
func (s *Shared[T]) persistOnce(ctx context.Context) error {
	c := s.cell
	c.io.Lock()
	defer c.io.Unlock()

	c.mu.RLock()
	gen := c.gen.Load()
	data, err := s.codec.Encode(c.value)
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := s.store.Write(ctx, s.location, data); err != nil {
		return err
	}
	c.markSynced(gen, data)
	return nil
}

// Load reads and decodes the location, then replaces the value under the
// write lock. Readers observe either the previous or the loaded value. The
// value is left unchanged on failure.
func (s *Shared[T]) Load(ctx context.Context) error {
	_, err := s.load(ctx, false)
	return err
}

// load replaces the value from the location. With onlyIfChanged it skips
// content identical to the last synced bytes and refuses to overwrite
// unpersisted changes; the returned bool reports whether the value changed.
func (s *Shared[T]) load(ctx context.Context, onlyIfChanged bool) (bool, error) {
	c := s.cell
	c.io.Lock()
	defer c.io.Unlock()

	data, err := s.store.Read(ctx, s.location)
	if err != nil {
		return false, err
	}
	if onlyIfChanged {
		if sha256.Sum256(data) == c.digest {
			return false, nil
		}
		if s.IsDirty() {
			return false, ErrUnpersistedChanges
		}
	}

	decoded, err := s.codec.Decode(data)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.value = decoded
	gen := c.gen.Add(1)
	c.mu.Unlock()

	c.markSynced(gen, data)
	return true, nil
}
