package record

import (
	"strings"
)

// Record is one item in a collection: a mapping from field name to Value.
// Records are treated as immutable; build a new one instead of editing.
type Record map[string]Value

// Get resolves a field by name. An exact key match wins; otherwise a dotted
// path ("owner.name") is walked through nested Objects.
//
// Returns ok=false when the field is absent or null.
func (r Record) Get(path string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r[path]; ok {
		return present(v)
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}
	return lookupPath(Object(r), strings.Split(path, "."))
}

func lookupPath(obj Object, parts []string) (Value, bool) {
	v, ok := obj[parts[0]]
	if !ok {
		return nil, false
	}
	if len(parts) == 1 {
		return present(v)
	}
	nested, ok := v.(Object)
	if !ok {
		return nil, false
	}
	return lookupPath(nested, parts[1:])
}

func present(v Value) (Value, bool) {
	switch v.(type) {
	case nil, Null:
		return nil, false
	default:
		return v, true
	}
}

// SortedKeys returns the record's keys in RFC 8785 canonical order.
func (r Record) SortedKeys() []string {
	return Object(r).SortedKeys()
}

// MarshalJSON encodes the record as canonical JSON.
func (r Record) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(Object(r))
}

// MarshalJSON encodes the object as canonical JSON.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON encodes the array as canonical JSON.
func (arr Array) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}

// MarshalJSON encodes a date as an RFC 3339 string.
func (d Date) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(d)
}

// MarshalJSON encodes null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON encodes a number with its shortest round-trip form.
func (n Number) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(n)
}

// Pair is a key-value pair for ergonomic record construction.
type Pair struct {
	Key   string
	Value Value
}

// F is shorthand for Pair.
// Example: New(F("name", String("Acme")), F("score", Number(10)))
func F(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// New builds a Record from pairs.
func New(pairs ...Pair) Record {
	r := make(Record, len(pairs))
	for _, p := range pairs {
		r[p.Key] = p.Value
	}
	return r
}
