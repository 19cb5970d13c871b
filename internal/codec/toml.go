package codec

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"
)

// TOML encodes table-shaped values (structs and maps) as TOML documents.
type TOML[T any] struct {
	Strict bool
}

func (TOML[T]) Format() string { return FormatTOML }

func (TOML[T]) Encode(v T) ([]byte, error) {
	data, err := toml.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Format: FormatTOML, Err: err}
	}
	return data, nil
}

func (c TOML[T]) Decode(data []byte) (T, error) {
	var zero T
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, &DecodeError{Format: FormatTOML, Err: ErrEmptyContent}
	}

	var v T
	dec := toml.NewDecoder(bytes.NewReader(data))
	if c.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		return zero, &DecodeError{Format: FormatTOML, Err: err}
	}
	return v, nil
}
