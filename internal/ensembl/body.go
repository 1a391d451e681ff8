package ensembl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Body is a decoded JSON response. The service's homology payload varies by
// relation type and sequence mode, so the document is kept untyped and read
// through accessors that report absence instead of failing.
type Body struct {
	root any
}

// DecodeBody parses a single JSON document. Anything but whitespace after it
// is an error.
func DecodeBody(b []byte) (Body, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return Body{}, fmt.Errorf("decode json body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Body{}, fmt.Errorf("decode json body: trailing data after offset %d", dec.InputOffset())
	}
	return Body{root: root}, nil
}

// NewBody wraps an already decoded document.
func NewBody(root any) Body {
	return Body{root: root}
}

// Root returns the decoded document.
func (b Body) Root() any {
	return b.root
}

// Object returns the document as a JSON object, if it is one.
func (b Body) Object() (map[string]any, bool) {
	m, ok := b.root.(map[string]any)
	return m, ok
}

// List returns m[key] when it is a JSON array.
func List(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].([]any)
	return v, ok
}

// Object returns m[key] when it is a JSON object.
func Object(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].(map[string]any)
	return v, ok
}

// String returns m[key] when it is a JSON string.
func String(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok
}
