package repository

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/containerd/errdefs"
)

const (
	OpRead  = "read"
	OpWrite = "write"
	OpWatch = "watch"
)

// ErrEmptyLocation is returned for operations on an unset location.
var ErrEmptyLocation = errors.New("location is required")

// IoError reports a failed read or write together with the location and the
// underlying cause.
type IoError struct {
	Op       string
	Location Location
	Err      error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Location, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// Is lets errdefs.IsNotFound recognise reads of absent locations.
func (e *IoError) Is(target error) bool {
	return target == errdefs.ErrNotFound && errors.Is(e.Err, fs.ErrNotExist)
}

// IsNotExist reports whether err is an IoError for a location that does not exist.
func IsNotExist(err error) bool {
	var ioErr *IoError
	return errors.As(err, &ioErr) && errors.Is(ioErr.Err, fs.ErrNotExist)
}
