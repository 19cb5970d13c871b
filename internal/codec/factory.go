package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// ForFormat returns the codec registered for a format name.
// An empty name selects JSON.
func ForFormat[T any](format string) (Codec[T], error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		return JSON[T]{}, nil
	case FormatTOML:
		return TOML[T]{}, nil
	case FormatYAML, "yml":
		return YAML[T]{}, nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: %s, %s, %s)", ErrUnknownFormat, format, FormatJSON, FormatTOML, FormatYAML)
	}
}

// FormatFromPath infers the format name from a file extension.
func FormatFromPath(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case FormatJSON, FormatTOML:
		return ext, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format from %q", ErrUnknownFormat, path)
	}
}

// ForPath returns the codec matching the extension of path.
func ForPath[T any](path string) (Codec[T], error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return ForFormat[T](format)
}
