package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bassista/go_persist/internal/logger"
)

const defaultFileMode os.FileMode = 0o644

// pathLocks serializes readers and writers of the same file within the
// process, across every FileRepository instance. A write truncates before it
// writes, so an unguarded reader could observe an empty or partial file.
var pathLocks sync.Map // absolute path -> *sync.RWMutex

func lockFor(path string) *sync.RWMutex {
	mu, _ := pathLocks.LoadOrStore(path, &sync.RWMutex{})
	return mu.(*sync.RWMutex)
}

// FileRepository reads and writes whole files. Every write is a full
// overwrite (create, truncate, write); there is no temp-file swap and no
// fsync, so a crash mid-write can leave a truncated file.
type FileRepository struct {
	mode       os.FileMode
	createDirs bool
}

// Option configures a FileRepository.
type Option func(*FileRepository)

// WithFileMode sets the permission bits used when a file is created.
func WithFileMode(mode os.FileMode) Option {
	return func(r *FileRepository) { r.mode = mode }
}

// WithCreateDirs makes Write create missing parent directories.
func WithCreateDirs() Option {
	return func(r *FileRepository) { r.createDirs = true }
}

func NewFileRepository(opts ...Option) *FileRepository {
	r := &FileRepository{mode: defaultFileMode}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns the full content of the file at loc. A missing file is an
// *IoError wrapping fs.ErrNotExist.
func (r *FileRepository) Read(ctx context.Context, loc Location) ([]byte, error) {
	path, err := r.resolve(ctx, OpRead, loc)
	if err != nil {
		return nil, err
	}

	mu := lockFor(path)
	mu.RLock()
	defer mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Op: OpRead, Location: loc, Err: err}
	}
	logger.WithComponent("repository").Tracef("read %d bytes from %s", len(data), path)
	return data, nil
}

// Write replaces the content of the file at loc with data.
func (r *FileRepository) Write(ctx context.Context, loc Location, data []byte) error {
	path, err := r.resolve(ctx, OpWrite, loc)
	if err != nil {
		return err
	}

	mu := lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	if r.createDirs {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return &IoError{Op: OpWrite, Location: loc, Err: err}
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, r.mode)
	if err != nil {
		return &IoError{Op: OpWrite, Location: loc, Err: err}
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return &IoError{Op: OpWrite, Location: loc, Err: err}
	}
	if err := file.Close(); err != nil {
		return &IoError{Op: OpWrite, Location: loc, Err: err}
	}

	logger.WithComponent("repository").Tracef("wrote %d bytes to %s", len(data), path)
	return nil
}

func (r *FileRepository) resolve(ctx context.Context, op string, loc Location) (string, error) {
	if loc == "" {
		return "", &IoError{Op: op, Location: loc, Err: ErrEmptyLocation}
	}
	if err := ctx.Err(); err != nil {
		return "", &IoError{Op: op, Location: loc, Err: err}
	}
	path, err := filepath.Abs(loc.Path())
	if err != nil {
		return "", &IoError{Op: op, Location: loc, Err: err}
	}
	return path, nil
}
