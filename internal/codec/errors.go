package codec

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrUnknownFormat is returned by the factory for unsupported format names.
	ErrUnknownFormat = errors.New("unknown codec format")

	// ErrEmptyContent is the cause of a DecodeError raised for blank input.
	ErrEmptyContent = errors.New("empty content")

	// ErrTrailingData is the cause of a DecodeError raised by strict decoders
	// when bytes follow the first value.
	ErrTrailingData = errors.New("trailing data after value")
)

// EncodeError reports a value that could not be serialized.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports content that does not parse or does not match the
// expected value shape.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errdefs.IsInvalidArgument classify malformed content.
func (e *DecodeError) Is(target error) bool {
	return target == errdefs.ErrInvalidArgument
}
