// Package persist binds in-memory values to a persistent location.
//
// Value is the single-owner variant: Persist writes Data through a codec to
// the bound location, Load replaces Data with the decoded content.
//
// Shared is the multi-owner variant: the value lives behind a read/write lock
// shared by every clone of the handle, and Persist with a non-zero interval
// keeps writing it on a fixed cadence until the context is cancelled or a
// write fails.
//
// Failures surface as *repository.IoError, *codec.EncodeError or
// *codec.DecodeError. Nothing is retried and nothing is swallowed; on a failed
// Load the in-memory value is left untouched.
package persist

import (
	"context"
	"errors"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/repository"
)

// Persister is the load/persist-once contract of an owned value.
type Persister interface {
	Persist(ctx context.Context) error
	Load(ctx context.Context) error
}

var defaultStore repository.Store = repository.NewFileRepository()

func resolveDefaults[T any](c codec.Codec[T], store repository.Store) (codec.Codec[T], repository.Store) {
	if c == nil {
		c = codec.JSON[T]{}
	}
	if store == nil {
		store = defaultStore
	}
	return c, store
}

// IsIoError reports whether err was raised by the store.
func IsIoError(err error) bool {
	var ioErr *repository.IoError
	return errors.As(err, &ioErr)
}

// IsEncodeError reports whether err was raised while serializing a value.
func IsEncodeError(err error) bool {
	var encErr *codec.EncodeError
	return errors.As(err, &encErr)
}

// IsDecodeError reports whether err was raised while parsing stored content.
func IsDecodeError(err error) bool {
	var decErr *codec.DecodeError
	return errors.As(err, &decErr)
}

// IsNotFound reports whether err is a load from a location that was never written.
func IsNotFound(err error) bool {
	return repository.IsNotExist(err)
}
