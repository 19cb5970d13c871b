package repository

import "context"

// Reader loads the raw content of a location.
type Reader interface {
	Read(ctx context.Context, loc Location) ([]byte, error)
}

// Writer replaces the entire content of a location, creating it if absent.
type Writer interface {
	Write(ctx context.Context, loc Location, data []byte) error
}

// Store abstracts raw persistence of byte content at a location.
// FileRepository and MemoryRepository implement this interface.
type Store interface {
	Reader
	Writer
}
