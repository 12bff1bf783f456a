package bloomjoin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// Record is a value identified by a string id. All other content is opaque
// to the reconciler and only compared for equality.
type Record interface {
	RecordID() string
}

// EqualFunc reports whether two records carry the same content.
type EqualFunc func(a, b any) bool

// Document is a schemaless record decoded from JSON. Numbers are kept as
// json.Number so documents pass through unchanged.
type Document map[string]any

// RecordID returns the "id" field, or "" if it is missing or not a string.
func (d Document) RecordID() string {
	id, _ := d["id"].(string)
	return id
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	*d = m
	return nil
}

// CanonicalEqual compares the JSON forms of a and b as generic values, so the
// result does not depend on field order. Values that cannot be encoded are
// never equal.
func CanonicalEqual(a, b any) bool {
	va, err := canonical(a)
	if err != nil {
		return false
	}
	vb, err := canonical(b)
	if err != nil {
		return false
	}
	return cmp.Equal(va, vb)
}

func canonical(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
