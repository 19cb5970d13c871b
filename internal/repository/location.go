package repository

import "path/filepath"

// Location identifies where a value is persisted. For file-backed stores it
// is a filesystem path; no other schema is imposed.
type Location string

func (l Location) String() string { return string(l) }

// Path returns the cleaned filesystem path.
func (l Location) Path() string { return filepath.Clean(string(l)) }

// Dir returns the parent directory, "." for bare file names.
func (l Location) Dir() string {
	dir := filepath.Dir(l.Path())
	if dir == "" {
		return "."
	}
	return dir
}

// Base returns the last path element.
func (l Location) Base() string { return filepath.Base(l.Path()) }
