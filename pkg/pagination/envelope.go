package pagination

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingItems is returned when an envelope lacks its items field.
var ErrMissingItems = errors.New("envelope has no items field")

// Envelope describes where a JSON page keeps its items and next cursor.
type Envelope struct {
	// ItemsField is the top-level key holding the item array.
	ItemsField string

	// NextPath is the key path to the next cursor, e.g. ["links", "next"].
	NextPath []string
}

// JSONAPI is the {"items": [...], "links": {"next": "..."}} envelope.
var JSONAPI = Envelope{
	ItemsField: "items",
	NextPath:   []string{"links", "next"},
}

// ParseEnvelope builds an Envelope from an items key and a dotted next path
// such as "links.next". Empty arguments fall back to JSONAPI.
func ParseEnvelope(itemsField, nextPath string) Envelope {
	env := Envelope{ItemsField: itemsField}
	if nextPath != "" {
		env.NextPath = strings.Split(nextPath, ".")
	}
	return env.normalize()
}

func (e Envelope) normalize() Envelope {
	if e.ItemsField == "" {
		e.ItemsField = JSONAPI.ItemsField
	}
	if len(e.NextPath) == 0 {
		e.NextPath = JSONAPI.NextPath
	}
	return e
}

// DecodePage decodes a page from a JSON envelope.
// A missing or non-string next cursor decodes as end of data.
func DecodePage[T any](data []byte, env Envelope) (Page[T], error) {
	env = env.normalize()

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return Page[T]{}, fmt.Errorf("decode envelope: %w", err)
	}

	raw, ok := root[env.ItemsField]
	if !ok {
		return Page[T]{}, fmt.Errorf("%w: %q", ErrMissingItems, env.ItemsField)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return Page[T]{}, fmt.Errorf("decode %s: %w", env.ItemsField, err)
	}

	return Page[T]{
		items:  items,
		cursor: lookupCursor(root, env.NextPath),
	}, nil
}

// EncodePage writes p in the given envelope shape.
func EncodePage[T any](p Page[T], env Envelope) ([]byte, error) {
	env = env.normalize()

	items := p.items
	if items == nil {
		items = []T{}
	}
	root := map[string]any{env.ItemsField: items}

	if p.cursor != "" {
		obj := root
		last := len(env.NextPath) - 1
		for _, key := range env.NextPath[:last] {
			child := map[string]any{}
			obj[key] = child
			obj = child
		}
		obj[env.NextPath[last]] = p.cursor
	}

	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return data, nil
}

// MarshalJSON encodes the page as a JSONAPI envelope.
func (p Page[T]) MarshalJSON() ([]byte, error) {
	return EncodePage(p, JSONAPI)
}

// UnmarshalJSON decodes a JSONAPI envelope into the page.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePage[T](data, JSONAPI)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func lookupCursor(root map[string]json.RawMessage, path []string) string {
	obj := root
	for i, key := range path {
		raw, ok := obj[key]
		if !ok {
			return ""
		}
		if i == len(path)-1 {
			var cursor string
			if err := json.Unmarshal(raw, &cursor); err != nil {
				return ""
			}
			return cursor
		}
		obj = nil
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
	}
	return ""
}
