package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/facetview/internal/record"
)

// VersionGenerator produces dataset versions.
type VersionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 dataset versions.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined versions for tests.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu       sync.Mutex
	versions []string
	idx      int
}

// NewFixedGenerator creates a generator that returns versions in order.
func NewFixedGenerator(versions ...string) *FixedGenerator {
	return &FixedGenerator{versions: versions}
}

// Generate returns the next predetermined version.
//
// Panics if all versions have been consumed, so a test that loads more
// datasets than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.versions) {
		panic("FixedGenerator: all versions exhausted")
	}
	v := g.versions[g.idx]
	g.idx++
	return v
}

// Dataset is an immutable record collection with a version identity.
//
// The memo cache trusts Version: two datasets with the same Version must
// hold the same records.
type Dataset struct {
	Version string
	Schema  *record.Schema
	Records []record.Record
}

// NewDataset versions records with gen (UUIDv7Generator when nil). A nil
// schema is inferred from the records.
func NewDataset(schema *record.Schema, records []record.Record, gen VersionGenerator) *Dataset {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	if schema == nil {
		schema = record.InferSchema(records)
	}
	return &Dataset{
		Version: gen.Generate(),
		Schema:  schema,
		Records: records,
	}
}

// NewContentDataset versions records by content, so reloading identical
// data reuses cached results.
func NewContentDataset(schema *record.Schema, records []record.Record) (*Dataset, error) {
	version, err := ContentVersion(records)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		schema = record.InferSchema(records)
	}
	return &Dataset{Version: version, Schema: schema, Records: records}, nil
}

// ContentVersion derives a version from the canonical form of records.
func ContentVersion(records []record.Record) (string, error) {
	h, err := record.RecordsHash(records)
	if err != nil {
		return "", fmt.Errorf("content version: %w", err)
	}
	return h, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
