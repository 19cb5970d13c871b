package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSON encodes values as compact standard JSON without a trailing newline.
// Strict decoding rejects unknown object fields and trailing data.
type JSON[T any] struct {
	Strict bool
}

func (JSON[T]) Format() string { return FormatJSON }

func (JSON[T]) Encode(v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Format: FormatJSON, Err: err}
	}
	return data, nil
}

func (c JSON[T]) Decode(data []byte) (T, error) {
	var zero T
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, &DecodeError{Format: FormatJSON, Err: ErrEmptyContent}
	}

	var v T
	if !c.Strict {
		if err := json.Unmarshal(data, &v); err != nil {
			return zero, &DecodeError{Format: FormatJSON, Err: err}
		}
		return v, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return zero, &DecodeError{Format: FormatJSON, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return zero, &DecodeError{Format: FormatJSON, Err: ErrTrailingData}
	}
	return v, nil
}
