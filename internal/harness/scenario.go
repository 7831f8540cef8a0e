package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// Scenario defines one pipeline test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Locale is the BCP 47 tag used for string sorting. Empty means English.
	Locale string `yaml:"locale,omitempty"`

	// Schema declares the record fields in order. When empty the schema is
	// inferred from Records.
	Schema []FieldDef `yaml:"schema,omitempty"`

	// Records are the dataset, one mapping per record.
	Records []map[string]any `yaml:"records"`

	// Query is the pipeline to run, in expression syntax.
	Query QuerySpec `yaml:"query"`

	// Expect lists the checks to make on the result.
	Expect Expectation `yaml:"expect"`
}

// FieldDef declares one schema field.
type FieldDef struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Values []string `yaml:"values,omitempty"`
}

// QuerySpec is a query written with the same expressions the CLI accepts.
type QuerySpec struct {
	Search    query.Search `yaml:"search,omitempty"`
	Where     []string     `yaml:"where,omitempty"`
	Sort      string       `yaml:"sort,omitempty"`
	Group     string       `yaml:"group,omitempty"`
	Aggregate []string     `yaml:"aggregate,omitempty"`
	Limit     int          `yaml:"limit,omitempty"`
}

// Expectation specifies what the result must look like. Unset fields are
// not checked.
type Expectation struct {
	// KeyField names the field used to identify records in Order.
	// Defaults to "name".
	KeyField string `yaml:"key_field,omitempty"`

	// Order is the exact list of KeyField values of the returned records.
	Order []string `yaml:"order,omitempty"`

	// Count is the expected number of matched records.
	Count *int `yaml:"count,omitempty"`

	// Groups is the exact list of group keys, in order.
	Groups []string `yaml:"groups,omitempty"`

	// Totals maps aggregate names to values; null means undefined.
	Totals map[string]*float64 `yaml:"totals,omitempty"`

	// GroupMetrics maps group keys to expected aggregate values.
	GroupMetrics map[string]map[string]*float64 `yaml:"group_metrics,omitempty"`

	// Error is the query error code the scenario must fail with, e.g.
	// INVALID_OPERATOR_FOR_TYPE. When set no other expectation applies.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "aggregates:" vs "aggregate:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads a single scenario file, or every .yaml and .yml file
// in a directory (sorted by name, not recursive).
func LoadScenarios(path string) ([]*Scenario, error) {
	files, err := ScenarioFiles(path)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// ScenarioFiles returns path itself when it is a file, or the sorted
// .yaml/.yml files directly inside it when it is a directory.
func ScenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	slices.Sort(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", path)
	}
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Records == nil {
		return fmt.Errorf("records list is required (use [] for an empty dataset)")
	}

	for i, f := range s.Schema {
		if f.Name == "" {
			return fmt.Errorf("schema[%d]: name is required", i)
		}
		if f.Type == "" {
			return fmt.Errorf("schema[%d]: type is required", i)
		}
	}

	for i, r := range s.Records {
		if r == nil {
			return fmt.Errorf("records[%d]: must be a mapping", i)
		}
	}

	e := s.Expect
	if e.Error != "" && (len(e.Order) > 0 || len(e.Groups) > 0 || e.Count != nil ||
		len(e.Totals) > 0 || len(e.GroupMetrics) > 0) {
		return fmt.Errorf("expect.error cannot be combined with result expectations")
	}

	return nil
}

// BuildSchema converts the declared fields. Returns nil when none are
// declared.
func (s *Scenario) BuildSchema() (*record.Schema, error) {
	if len(s.Schema) == 0 {
		return nil, nil
	}
	fields := make([]record.Field, len(s.Schema))
	for i, f := range s.Schema {
		fields[i] = record.Field{Name: f.Name, Type: record.FieldType(f.Type), Values: f.Values}
	}
	schema, err := record.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return schema, nil
}

// BuildRecords converts the scenario records, coercing declared fields.
func (s *Scenario) BuildRecords(schema *record.Schema) ([]record.Record, error) {
	records := make([]record.Record, len(s.Records))
	for i, m := range s.Records {
		r, err := record.FromMap(m, schema)
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		records[i] = r
	}
	return records, nil
}

// Build parses every expression against the schema. Errors are query
// errors (*query.Error), joined when there are several.
func (q QuerySpec) Build(schema *record.Schema) (query.Query, error) {
	var (
		out  = query.Query{Search: q.Search, Limit: q.Limit}
		errs []error
	)
	for _, expr := range q.Where {
		c, err := query.ParseClause(schema, expr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Clauses = append(out.Clauses, c)
	}
	if q.Sort != "" {
		s, err := query.ParseSort(schema, q.Sort)
		if err != nil {
			errs = append(errs, err)
		}
		out.Sort = s
	}
	if q.Group != "" {
		g, err := query.ParseGroup(schema, q.Group)
		if err != nil {
			errs = append(errs, err)
		}
		out.Group = g
	}
	for _, expr := range q.Aggregate {
		a, err := query.ParseAggregate(schema, expr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Aggregates = append(out.Aggregates, a)
	}
	if len(errs) > 0 {
		return query.Query{}, errors.Join(errs...)
	}
	return out, nil
}
