package repository

import (
	"context"
	"io/fs"
	"sync"
)

// MemoryRepository is a Store that keeps content in a map. It follows the
// same contract as FileRepository (missing locations fail, writes replace)
// and is useful for tests and embedding without a filesystem.
type MemoryRepository struct {
	mu       sync.RWMutex
	files    map[Location][]byte
	writes   map[Location]int
	writeErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		files:  map[Location][]byte{},
		writes: map[Location]int{},
	}
}

func (m *MemoryRepository) Read(ctx context.Context, loc Location) ([]byte, error) {
	if loc == "" {
		return nil, &IoError{Op: OpRead, Location: loc, Err: ErrEmptyLocation}
	}
	if err := ctx.Err(); err != nil {
		return nil, &IoError{Op: OpRead, Location: loc, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[loc]
	if !ok {
		return nil, &IoError{Op: OpRead, Location: loc, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryRepository) Write(ctx context.Context, loc Location, data []byte) error {
	if loc == "" {
		return &IoError{Op: OpWrite, Location: loc, Err: ErrEmptyLocation}
	}
	if err := ctx.Err(); err != nil {
		return &IoError{Op: OpWrite, Location: loc, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return &IoError{Op: OpWrite, Location: loc, Err: m.writeErr}
	}
	m.files[loc] = append([]byte(nil), data...)
	m.writes[loc]++
	return nil
}

// FailWrites makes every subsequent Write fail with err; nil restores writes.
func (m *MemoryRepository) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// WriteCount returns how many successful writes hit loc.
func (m *MemoryRepository) WriteCount(loc Location) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[loc]
}
