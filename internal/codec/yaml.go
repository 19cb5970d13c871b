package codec

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML encodes values as a single YAML document.
type YAML[T any] struct {
	Strict bool
}

func (YAML[T]) Format() string { return FormatYAML }

// Encode reports unsupported types (channels, functions) as an EncodeError;
// yaml.Marshal panics on them.
func (YAML[T]) Encode(v T) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &EncodeError{Format: FormatYAML, Err: fmt.Errorf("%v", r)}
		}
	}()

	data, err = yaml.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Format: FormatYAML, Err: err}
	}
	return data, nil
}

func (c YAML[T]) Decode(data []byte) (T, error) {
	var zero T
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, &DecodeError{Format: FormatYAML, Err: ErrEmptyContent}
	}

	var v T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(c.Strict)
	if err := dec.Decode(&v); err != nil {
		return zero, &DecodeError{Format: FormatYAML, Err: err}
	}
	return v, nil
}
