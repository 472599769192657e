package etl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// Sources emit Nodes, the classifier turns them into Records,
// the serializer and destinations consume Records.

// Value is a single field value: either Text or Structured.
type Value interface {
	// Render returns the value as cell text, before delimiter sanitizing.
	Render() (string, error)
	isValue()
}

// Text is a plain string value.
type Text string

func (t Text) Render() (string, error) { return string(t), nil }
func (Text) isValue() {}

// Structured wraps an arbitrary JSON-like tree (maps, slices, numbers, bools).
type Structured struct {
	V any
}

// Render encodes the tree as compact JSON without HTML escaping.
func (s Structured) Render() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.V); err != nil {
		return "", fmt.Errorf("encode structured value: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// MarshalJSON encodes the wrapped tree itself.
func (s Structured) MarshalJSON() ([]byte, error) { return json.Marshal(s.V) }

func (Structured) isValue() {}

// Record is a single row: an open-ended bag of fields with no fixed schema.
type Record struct {
	Data map[string]Value `json:"data"`
}

// Get returns the value for key. Missing keys report ok=false.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.Data[key]
	return v, ok
}

// Keys returns the record's field names in byte order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Node is one top-level entry of a compacted record tree.
// A nil Data means the payload is absent; an empty non-nil map is a record
// without fields.
type Node struct {
	Tag  string           `json:"type"`
	Data map[string]Value `json:"data"`
}

// Field describes a single column in a table.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "structured"
}

// Schema describes the ordered columns of a table.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
