package persist

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bassista/go_persist/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

func loadFresh(t *testing.T, loc repository.Location) string {
	t.Helper()
	v := NewValue("", loc, nil, nil)
	require.NoError(t, v.Load(context.Background()))
	return v.Data
}

func TestShared_SetupStartsAtZeroValue(t *testing.T) {
	s := NewShared[pair](tempLocation(t, "zero.json"), nil, nil)
	assert.Equal(t, pair{}, s.Get())
	assert.True(t, s.IsDirty(), "a value that was never persisted is dirty")
}

func TestShared_CloneSharesStorage(t *testing.T) {
	s := NewShared[pair](tempLocation(t, "clone.json"), nil, nil)
	c := s.Clone()

	c.Set(pair{A: 1, B: 1})
	assert.Equal(t, pair{A: 1, B: 1}, s.Get())

	s.Update(func(p *pair) { p.A = 7 })
	assert.Equal(t, 7, c.Get().A)
	assert.Equal(t, s.Location(), c.Location())
}

func TestShared_PersistOnceAndLoad(t *testing.T) {
	ctx := context.Background()
	loc := tempLocation(t, "once.json")

	s := NewSharedWith("Hello World!", loc, nil, nil)
	require.NoError(t, s.Persist(ctx, 0))
	assert.False(t, s.IsDirty())
	assert.Equal(t, "Hello World!", loadFresh(t, loc))

	other := NewShared[string](loc, nil, nil)
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, "Hello World!", other.Get())
	assert.False(t, other.IsDirty())
}

func TestShared_NegativeInterval(t *testing.T) {
	s := NewShared[string](tempLocation(t, "neg.json"), nil, nil)
	assert.ErrorIs(t, s.Persist(context.Background(), -time.Second), ErrInvalidInterval)

	loop := s.StartPersisting(context.Background(), -time.Second)
	assert.ErrorIs(t, loop.Wait(), ErrInvalidInterval)
}

func TestShared_Load_FailuresLeaveValueUnchanged(t *testing.T) {
	ctx := context.Background()

	missing := NewSharedWith("keep", tempLocation(t, "missing.json"), nil, nil)
	err := missing.Load(ctx)
	assert.True(t, IsIoError(err))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "keep", missing.Get())

	loc := tempLocation(t, "malformed.json")
	require.NoError(t, os.WriteFile(loc.Path(), []byte(`{"a":`), 0o644))
	malformed := NewSharedWith(pair{A: 1, B: 1}, loc, nil, nil)
	err = malformed.Load(ctx)
	assert.True(t, IsDecodeError(err))
	assert.Equal(t, pair{A: 1, B: 1}, malformed.Get())
}

func TestShared_DirtyTracking(t *testing.T) {
	ctx := context.Background()
	loc := tempLocation(t, "dirty.json")
	s := NewShared[pair](loc, nil, nil)

	require.NoError(t, s.Persist(ctx, 0))
	assert.False(t, s.IsDirty())

	g := s.Lock()
	g.Ptr().A = 3
	g.Unlock()
	g.Unlock() // second release is a no-op
	assert.True(t, s.IsDirty())

	require.NoError(t, s.Persist(ctx, 0))
	assert.False(t, s.IsDirty())

	s.Set(pair{A: 9})
	assert.True(t, s.IsDirty())
	require.NoError(t, s.Load(ctx))
	assert.False(t, s.IsDirty())
	assert.Equal(t, pair{A: 3}, s.Get())
}

func TestShared_ReadGuardsAreConcurrent(t *testing.T) {
	s := NewSharedWith(pair{A: 1}, tempLocation(t, "guards.json"), nil, nil)

	g1 := s.RLock()
	g2 := s.RLock()
	assert.Equal(t, 1, g1.Value().A)
	assert.Equal(t, 1, g2.Value().A)

	acquired := make(chan struct{})
	go func() {
		w := s.Lock()
		w.Set(pair{A: 2})
		w.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired the lock while readers held it")
	case <-time.After(50 * time.Millisecond):
	}

	g1.Unlock()
	g2.Unlock()
	g2.Unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never acquired the lock")
	}
	s.View(func(p pair) { assert.Equal(t, 2, p.A) })
}

func TestShared_SnapshotIsDeepCopy(t *testing.T) {
	s := NewSharedWith(map[string][]int{"a": {1, 2}}, tempLocation(t, "snap.json"), nil, nil)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	snap["a"][0] = 99
	snap["b"] = []int{3}

	assert.Equal(t, map[string][]int{"a": {1, 2}}, s.Get())
}

func TestShared_IntervalPersistence(t *testing.T) {
	loc := tempLocation(t, "interval.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewShared[string](loc, nil, nil)
	loop := s.Clone().StartPersisting(ctx, 50*time.Millisecond)
	s.Set("X")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "X", loadFresh(t, loc))

	s.Set("Y")
	assert.Equal(t, "X", loadFresh(t, loc), "Y must not be visible before the next tick")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "Y", loadFresh(t, loc))

	assert.True(t, loop.Running())
	assert.NoError(t, loop.Stop())
	assert.False(t, loop.Running())
	assert.NotEmpty(t, loop.ID())
	assert.Equal(t, 50*time.Millisecond, loop.Interval())
}

func TestShared_Modify(t *testing.T) {
	ctx := context.Background()
	s := NewSharedWith(pair{A: 1}, tempLocation(t, "modify.json"), nil, nil)
	require.NoError(t, s.Persist(ctx, 0))

	require.NoError(t, s.Modify(func(p pair) (pair, error) {
		p.B = 2
		return p, nil
	}))
	assert.Equal(t, pair{A: 1, B: 2}, s.Get())
	assert.True(t, s.IsDirty())

	require.NoError(t, s.Persist(ctx, 0))
	rejected := errors.New("rejected")
	err := s.Modify(func(p pair) (pair, error) { return pair{}, rejected })
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, pair{A: 1, B: 2}, s.Get())
	assert.False(t, s.IsDirty())
}

func TestShared_ModifyRejectsUnencodableValue(t *testing.T) {
	s := NewSharedWith[any]("ok", tempLocation(t, "modify-any.json"), nil, nil)
	require.NoError(t, s.Persist(context.Background(), 0))

	err := s.Modify(func(any) (any, error) { return func() {}, nil })
	require.Error(t, err)
	assert.True(t, IsEncodeError(err))
	assert.Equal(t, "ok", s.Get())
	assert.False(t, s.IsDirty())
}

func TestShared_LoopAbortsOnWriteError(t *testing.T) {
	store := repository.NewMemoryRepository()
	s := NewSharedWith("v", "state.json", nil, store)

	loop := s.StartPersisting(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return store.WriteCount("state.json") >= 1 }, 2*time.Second, 5*time.Millisecond)

	boom := errors.New("disk full")
	store.FailWrites(boom)

	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not terminate after a write error")
	}
	err := loop.Err()
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsIoError(err))

	// the loop does not retry on its own; a fresh run resumes once writes work
	store.FailWrites(nil)
	restarted := s.StartPersisting(context.Background(), 10*time.Millisecond)
	count := store.WriteCount("state.json")
	require.Eventually(t, func() bool { return store.WriteCount("state.json") > count }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, restarted.Stop())
}

func TestShared_LoopAbortsOnEncodeError(t *testing.T) {
	store := repository.NewMemoryRepository()
	s := NewSharedWith[any](func() {}, "state.json", nil, store)

	err := s.Persist(context.Background(), 10*time.Millisecond)
	assert.True(t, IsEncodeError(err))
	assert.Equal(t, 0, store.WriteCount("state.json"))
}

func TestShared_CancelStopsLoopCleanly(t *testing.T) {
	store := repository.NewMemoryRepository()
	s := NewSharedWith("v", "state.json", nil, store)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Persist(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return store.WriteCount("state.json") == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop ignored cancellation")
	}
}

func TestShared_FinalFlush(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepository()
	s := NewSharedWith("first", "state.json", nil, store)

	loop := s.StartPersisting(ctx, time.Hour, WithFinalFlush())
	require.Eventually(t, func() bool { return store.WriteCount("state.json") == 1 }, 2*time.Second, 5*time.Millisecond)

	s.Set("last")
	require.NoError(t, loop.Stop())

	raw, err := store.Read(ctx, "state.json")
	require.NoError(t, err)
	assert.Equal(t, `"last"`, string(raw))
	assert.False(t, s.IsDirty())
}

func TestShared_SkipClean(t *testing.T) {
	store := repository.NewMemoryRepository()
	s := NewSharedWith("v", "state.json", nil, store)

	loop := s.StartPersisting(context.Background(), 10*time.Millisecond, SkipClean(), WithFinalFlush())
	require.Eventually(t, func() bool { return store.WriteCount("state.json") == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, store.WriteCount("state.json"), "clean ticks must not write")

	s.Set("w")
	require.Eventually(t, func() bool { return store.WriteCount("state.json") == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, loop.Stop())
	assert.Equal(t, 2, store.WriteCount("state.json"), "final flush of a clean value is skipped")
}

func TestShared_StartPersistingZeroIntervalRunsOnce(t *testing.T) {
	store := repository.NewMemoryRepository()
	s := NewSharedWith("v", "state.json", nil, store)

	loop := s.StartPersisting(context.Background(), 0)
	require.NoError(t, loop.Wait())
	assert.Equal(t, 1, store.WriteCount("state.json"))
}

func TestShared_ConcurrentLoadsRacingLoop(t *testing.T) {
	loc := tempLocation(t, "race.json")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewShared[pair](loc, nil, nil)
	require.NoError(t, s.Persist(ctx, 0))
	loop := s.StartPersisting(ctx, time.Millisecond)

	var mutators, loaders sync.WaitGroup
	stop := make(chan struct{})

	mutators.Add(1)
	go func() {
		defer mutators.Done()
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s.Update(func(p *pair) {
				p.A = i
				p.B = i
			})
		}
	}()

	for r := 0; r < 8; r++ {
		loaders.Add(1)
		go func() {
			defer loaders.Done()
			reader := NewShared[pair](loc, nil, nil)
			for i := 0; i < 100; i++ {
				if err := reader.Load(ctx); err != nil {
					t.Errorf("load: %v", err)
					return
				}
				if p := reader.Get(); p.A != p.B {
					t.Errorf("torn value %+v", p)
					return
				}
			}
		}()
	}

	// loads through the persisting handle itself race the loop too
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Load(ctx))
		p := s.Get()
		require.Equal(t, p.A, p.B)
	}

	loaders.Wait()
	close(stop)
	mutators.Wait()
	assert.NoError(t, loop.Stop())
}
