// Package pandoc reads, walks and writes pandoc's JSON document representation.
package pandoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned when the input is not a pandoc JSON document.
var ErrMalformed = errors.New("malformed pandoc document")

// Top-level keys of the pandoc JSON formats.
const (
	keyAPIVersion = "pandoc-api-version"
	keyMeta       = "meta"
	keyBlocks     = "blocks"
	keyUnMeta     = "unMeta" // pandoc < 1.18
)

// Document is a decoded pandoc JSON document.
//
// Both the current layout ({"pandoc-api-version", "meta", "blocks"}) and the
// legacy two-element array layout ([{"unMeta": ...}, [blocks]]) are accepted.
// The decoded tree is kept as generic JSON values so that every node, including
// ones this package knows nothing about, is written back unchanged.
type Document struct {
	root   any
	legacy bool
}

// Decode reads a pandoc JSON document from r.
// Numbers are kept as json.Number so they are re-encoded byte-for-byte.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return FromValue(root)
}

// FromValue wraps an already decoded JSON value as a Document.
func FromValue(root any) (*Document, error) {
	switch v := root.(type) {
	case map[string]any:
		if _, ok := v[keyBlocks].([]any); !ok {
			return nil, fmt.Errorf("%w: missing %q array", ErrMalformed, keyBlocks)
		}
		if _, ok := v[keyMeta]; !ok {
			v[keyMeta] = map[string]any{}
		}
		if _, ok := v[keyMeta].(map[string]any); !ok {
			return nil, fmt.Errorf("%w: %q is not an object", ErrMalformed, keyMeta)
		}
		return &Document{root: v}, nil

	case []any:
		if len(v) != 2 {
			return nil, fmt.Errorf("%w: legacy document has %d elements, want 2", ErrMalformed, len(v))
		}
		head, ok := v[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: legacy document header is not an object", ErrMalformed)
		}
		if _, ok := v[1].([]any); !ok {
			return nil, fmt.Errorf("%w: legacy document blocks are not an array", ErrMalformed)
		}
		if _, ok := head[keyUnMeta]; !ok {
			head[keyUnMeta] = map[string]any{}
		}
		if _, ok := head[keyUnMeta].(map[string]any); !ok {
			return nil, fmt.Errorf("%w: %q is not an object", ErrMalformed, keyUnMeta)
		}
		return &Document{root: v, legacy: true}, nil

	default:
		return nil, fmt.Errorf("%w: unexpected top-level %T", ErrMalformed, root)
	}
}

// Encode writes the document as pandoc JSON.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d.root); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}

// Legacy reports whether the document uses the pre-1.18 array layout.
func (d *Document) Legacy() bool {
	return d.legacy
}

// Value returns the underlying JSON value.
func (d *Document) Value() any {
	return d.root
}

// Meta returns the document's metadata map. Changes to it are reflected in
// the encoded document.
func (d *Document) Meta() map[string]any {
	if d.legacy {
		head := d.root.([]any)[0].(map[string]any)
		return head[keyUnMeta].(map[string]any)
	}
	return d.root.(map[string]any)[keyMeta].(map[string]any)
}

// Blocks returns the document's top-level blocks.
func (d *Document) Blocks() []any {
	if d.legacy {
		return d.root.([]any)[1].([]any)
	}
	return d.root.(map[string]any)[keyBlocks].([]any)
}

// SetMeta sets a metadata field, replacing any previous value.
func (d *Document) SetMeta(key string, value any) {
	d.Meta()[key] = value
}

// MetaString returns the text of a MetaInlines or MetaString field.
// Only plain Str inlines are concatenated; it returns false if the field is
// missing or has another shape.
func (d *Document) MetaString(key string) (string, bool) {
	tag, content, ok := element(d.Meta()[key])
	if !ok {
		return "", false
	}
	switch tag {
	case TagMetaString:
		s, ok := content.(string)
		return s, ok
	case TagMetaInlines:
		inlines, ok := content.([]any)
		if !ok {
			return "", false
		}
		var text string
		for _, in := range inlines {
			t, c, ok := element(in)
			if !ok || t != TagStr {
				return "", false
			}
			s, _ := c.(string)
			text += s
		}
		return text, true
	}
	return "", false
}
