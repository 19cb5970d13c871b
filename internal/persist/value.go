package persist

import (
	"context"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/repository"
)

var _ Persister = (*Value[struct{}])(nil)

// Value owns exactly one T and one location. Data is accessed directly; the
// owner is responsible for not sharing a Value across goroutines.
type Value[T any] struct {
	Data T

	location repository.Location
	codec    codec.Codec[T]
	store    repository.Store
}

// NewValue binds data to loc. A nil codec selects compact JSON and a nil
// store selects the filesystem.
func NewValue[T any](data T, loc repository.Location, c codec.Codec[T], store repository.Store) *Value[T] {
	c, store = resolveDefaults(c, store)
	return &Value[T]{Data: data, location: loc, codec: c, store: store}
}

func (v *Value[T]) Location() repository.Location { return v.location }

func (v *Value[T]) Format() string { return v.codec.Format() }

// Persist encodes Data and overwrites the location with it.
func (v *Value[T]) Persist(ctx context.Context) error {
	data, err := v.codec.Encode(v.Data)
	if err != nil {
		return err
	}
	return v.store.Write(ctx, v.location, data)
}

// Load replaces Data with the decoded content of the location. Data is left
// unchanged when the read or the decode fails.
func (v *Value[T]) Load(ctx context.Context) error {
	data, err := v.store.Read(ctx, v.location)
	if err != nil {
		return err
	}
	decoded, err := v.codec.Decode(data)
	if err != nil {
		return err
	}
	v.Data = decoded
	return nil
}
