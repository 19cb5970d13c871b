package repository

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRepository_WriteAndRead(t *testing.T) {
	loc := Location(filepath.Join(t.TempDir(), "state.json"))
	repo := NewFileRepository()
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, loc, []byte(`{"a":1}`)))

	data, err := repo.Read(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestFileRepository_WriteOverwritesWholeContent(t *testing.T) {
	loc := Location(filepath.Join(t.TempDir(), "state.json"))
	repo := NewFileRepository()
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, loc, []byte("a much longer first payload")))
	require.NoError(t, repo.Write(ctx, loc, []byte("short")))

	data, err := os.ReadFile(loc.Path())
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestFileRepository_Read_FileNotFound(t *testing.T) {
	loc := Location(filepath.Join(t.TempDir(), "missing.json"))
	repo := NewFileRepository()

	_, err := repo.Read(context.Background(), loc)
	require.Error(t, err)

	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, OpRead, ioErr.Op)
	assert.Equal(t, loc, ioErr.Location)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, IsNotExist(err))
	assert.True(t, errdefs.IsNotFound(err))
	assert.Contains(t, err.Error(), "missing.json")
}

func TestFileRepository_EmptyLocation(t *testing.T) {
	repo := NewFileRepository()

	_, err := repo.Read(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyLocation)

	err = repo.Write(context.Background(), "", []byte("x"))
	assert.ErrorIs(t, err, ErrEmptyLocation)
}

func TestFileRepository_CancelledContext(t *testing.T) {
	loc := Location(filepath.Join(t.TempDir(), "state.json"))
	repo := NewFileRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Write(ctx, loc, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(loc.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileRepository_CreateDirs(t *testing.T) {
	loc := Location(filepath.Join(t.TempDir(), "nested", "deeper", "state.json"))
	ctx := context.Background()

	err := NewFileRepository().Write(ctx, loc, []byte("x"))
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, OpWrite, ioErr.Op)

	require.NoError(t, NewFileRepository(WithCreateDirs()).Write(ctx, loc, []byte("x")))
	data, err := os.ReadFile(loc.Path())
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestFileRepository_FileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	loc := Location(filepath.Join(t.TempDir(), "secret.json"))

	require.NoError(t, NewFileRepository(WithFileMode(0o600)).Write(context.Background(), loc, []byte("{}")))

	info, err := os.Stat(loc.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRepository_ConcurrentReadersNeverSeePartialWrites(t *testing.T) {
	loc := Location(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()
	payloads := [][]byte{bytes.Repeat([]byte("a"), 4096), bytes.Repeat([]byte("b"), 4096)}

	writer := NewFileRepository()
	require.NoError(t, writer.Write(ctx, loc, payloads[0]))

	var writerWG, readersWG sync.WaitGroup
	stop := make(chan struct{})

	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := writer.Write(ctx, loc, payloads[i%2]); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
	}()

	for r := 0; r < 8; r++ {
		readersWG.Add(1)
		go func() {
			defer readersWG.Done()
			// separate instance: locking is per path, not per repository
			reader := NewFileRepository()
			for i := 0; i < 200; i++ {
				data, err := reader.Read(ctx, loc)
				if err != nil {
					t.Errorf("read: %v", err)
					return
				}
				if !bytes.Equal(data, payloads[0]) && !bytes.Equal(data, payloads[1]) {
					t.Errorf("torn read of %d bytes", len(data))
					return
				}
			}
		}()
	}

	readersWG.Wait()
	close(stop)
	writerWG.Wait()
}

func TestLocation(t *testing.T) {
	loc := Location("data/../data/state.json")
	assert.Equal(t, filepath.Join("data", "state.json"), loc.Path())
	assert.Equal(t, "data", loc.Dir())
	assert.Equal(t, "state.json", loc.Base())
	assert.Equal(t, ".", Location("state.json").Dir())
}
