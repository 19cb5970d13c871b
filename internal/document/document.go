// Package document defines the free-form JSON object served by the document
// service and persisted through a persist.Shared handle.
package document

import (
	"encoding/json"
	"errors"
	"sort"
)

// ErrKeyNotFound is returned for lookups of absent top-level keys.
var ErrKeyNotFound = errors.New("key not found")

// Document is a JSON object keyed by top-level field name.
type Document map[string]any

func New() Document { return Document{} }

// Clone deep-copies the document through JSON so callers never share nested
// maps or slices with the persisted value.
func (d Document) Clone() (Document, error) {
	if d == nil {
		return New(), nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the value stored under key.
func (d Document) Get(key string) (any, error) {
	v, ok := d[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

// Merge applies patch at the top level: keys with a null value are removed,
// every other key is replaced. The receiver is modified in place.
func (d Document) Merge(patch Document) {
	for k, v := range patch {
		if v == nil {
			delete(d, k)
			continue
		}
		d[k] = v
	}
}

// Keys returns the top-level keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
