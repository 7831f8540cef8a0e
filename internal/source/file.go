package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// Collection is a loaded set of records.
type Collection struct {
	Schema  *record.Schema
	Records []record.Record

	// Pushed lists the clauses a database already applied while loading.
	// The engine still re-applies them; this is informational.
	Pushed []query.Clause
}

// ErrUnsupportedFormat is returned by LoadFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported record file format")

// LoadJSON reads a JSON array of objects. Numbers are decoded exactly
// (json.Number) before conversion.
func LoadJSON(r io.Reader, schema *record.Schema) (*Collection, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON records: %w", err)
	}
	return build(raw, schema)
}

// LoadYAML reads a YAML sequence of mappings.
func LoadYAML(r io.Reader, schema *record.Schema) (*Collection, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return build(nil, schema)
		}
		return nil, fmt.Errorf("decode YAML records: %w", err)
	}
	return build(raw, schema)
}

// LoadFile loads records from path, choosing the decoder by extension
// (.json, .yaml or .yml).
func LoadFile(path string, schema *record.Schema) (*Collection, error) {
	var load func(io.Reader, *record.Schema) (*Collection, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		load = LoadJSON
	case ".yaml", ".yml":
		load = LoadYAML
	default:
		return nil, fmt.Errorf("%s: %w (want .json, .yaml or .yml)", path, ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	c, err := load(f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// build converts decoded objects into records.
func build(raw []map[string]any, schema *record.Schema) (*Collection, error) {
	records := make([]record.Record, 0, len(raw))
	for i, m := range raw {
		if m == nil {
			return nil, fmt.Errorf("record %d: expected an object", i)
		}
		r, err := record.FromMap(normalize(m), schema)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}
	if schema == nil {
		schema = record.InferSchema(records)
	}
	return &Collection{Schema: schema, Records: records}, nil
}

// normalize rewrites the map[any]any values some YAML documents produce
// (non-string keys) into map[string]any.
func normalize(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return normalize(x)
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[fmt.Sprint(k)] = normalizeValue(elem)
		}
		return out
	case []any:
		for i, elem := range x {
			x[i] = normalizeValue(elem)
		}
		return x
	default:
		return v
	}
}
