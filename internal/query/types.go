package query

import (
	"fmt"

	"github.com/roach88/facetview/internal/record"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpBetween     Operator = "between"
	OpIn          Operator = "in"
)

// Operators lists every supported operator.
var Operators = []Operator{OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpBetween, OpIn}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Clause is one filter condition on one field.
//
// Value holds a scalar for equals, notEquals, contains, greaterThan and
// lessThan; a two-element record.Array for between (inclusive bounds); and a
// record.Array of members for in. Clauses in a Query combine with AND.
type Clause struct {
	Field    string
	Operator Operator
	Value    record.Value
}

// String renders the clause in expression syntax.
func (c Clause) String() string {
	switch c.Operator {
	case OpBetween:
		if arr, ok := c.Value.(record.Array); ok && len(arr) == 2 {
			return fmt.Sprintf("%s between %s..%s", c.Field, record.Text(arr[0]), record.Text(arr[1]))
		}
	case OpIn:
		if arr, ok := c.Value.(record.Array); ok {
			s := c.Field + " in "
			for i, v := range arr {
				if i > 0 {
					s += "|"
				}
				s += record.Text(v)
			}
			return s
		}
	}
	return fmt.Sprintf("%s %s %s", c.Field, operatorSymbols[c.Operator], record.Text(c.Value))
}

var operatorSymbols = map[Operator]string{
	OpEquals:      "==",
	OpNotEquals:   "!=",
	OpContains:    "~",
	OpGreaterThan: ">",
	OpLessThan:    "<",
}

// Search is a case-insensitive free-text query over a set of fields.
// A record passes if ANY listed field contains Text. An empty Fields list
// means every top-level string field of the record. Empty Text disables search.
type Search struct {
	Text   string   `json:"text,omitempty" yaml:"text,omitempty"`
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Active reports whether the search restricts anything.
func (s Search) Active() bool {
	return s.Text != ""
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders records by one field. A zero Sort leaves input order untouched.
// An empty Direction means Asc.
type Sort struct {
	Field     string    `json:"field,omitempty" yaml:"field,omitempty"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Active reports whether a sort is requested.
func (s Sort) Active() bool {
	return s.Field != ""
}

// Descending reports whether the sort runs high to low.
func (s Sort) Descending() bool {
	return s.Direction == Desc
}

// Group partitions records by the distinct values of one field.
// A zero Group disables grouping.
type Group struct {
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// Active reports whether grouping is requested.
func (g Group) Active() bool {
	return g.Field != ""
}

// AggregateKind is a reduction over a group of records.
type AggregateKind string

const (
	AggSum     AggregateKind = "sum"
	AggAverage AggregateKind = "average"
	AggCount   AggregateKind = "count"
	AggRate    AggregateKind = "rate"
	AggMin     AggregateKind = "min"
	AggMax     AggregateKind = "max"
)

// AggregateKinds lists every supported aggregate.
var AggregateKinds = []AggregateKind{AggSum, AggAverage, AggCount, AggRate, AggMin, AggMax}

// DefaultRatePrecision is the number of decimals a rate is rounded to
// when Precision is not set.
const DefaultRatePrecision = 1

// Aggregate is a named reduction.
//
// sum, average, min and max read Field. count counts records, or only the
// records where Field is present when Field is set. rate computes
// sum(Numerator) / sum(Denominator) * 100.
type Aggregate struct {
	Name        string        `json:"name" yaml:"name"`
	Kind        AggregateKind `json:"kind" yaml:"kind"`
	Field       string        `json:"field,omitempty" yaml:"field,omitempty"`
	Numerator   string        `json:"numerator,omitempty" yaml:"numerator,omitempty"`
	Denominator string        `json:"denominator,omitempty" yaml:"denominator,omitempty"`
	Precision   *int          `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// Digits returns the rounding precision and whether rounding applies.
// Rates default to DefaultRatePrecision; other kinds round only when set.
func (a Aggregate) Digits() (int, bool) {
	if a.Precision != nil {
		return *a.Precision, true
	}
	if a.Kind == AggRate {
		return DefaultRatePrecision, true
	}
	return 0, false
}

// Query is the complete criteria for one pipeline run.
// Phase order is fixed: filter, sort, group, aggregate.
type Query struct {
	Search     Search
	Clauses    []Clause
	Sort       Sort
	Group      Group
	Aggregates []Aggregate

	// Limit truncates the returned record list after grouping and
	// aggregation have seen every match. 0 means no limit.
	Limit int
}

// Canonical returns the canonical JSON encoding of the query.
// Two queries with the same canonical form produce the same results.
func (q Query) Canonical() ([]byte, error) {
	clauses := make(record.Array, len(q.Clauses))
	for i, c := range q.Clauses {
		value := c.Value
		if value == nil {
			value = record.Null{}
		}
		clauses[i] = record.Object{
			"field": record.String(c.Field),
			"op":    record.String(string(c.Operator)),
			"value": value,
		}
	}

	fields := make(record.Array, len(q.Search.Fields))
	for i, f := range q.Search.Fields {
		fields[i] = record.String(f)
	}

	aggs := make(record.Array, len(q.Aggregates))
	for i, a := range q.Aggregates {
		obj := record.Object{
			"name":        record.String(a.Name),
			"kind":        record.String(string(a.Kind)),
			"field":       record.String(a.Field),
			"numerator":   record.String(a.Numerator),
			"denominator": record.String(a.Denominator),
		}
		if digits, ok := a.Digits(); ok {
			obj["precision"] = record.Number(float64(digits))
		}
		aggs[i] = obj
	}

	direction := q.Sort.Direction
	if direction == "" && q.Sort.Active() {
		direction = Asc
	}

	obj := record.Object{
		"search":     record.Object{"text": record.String(q.Search.Text), "fields": fields},
		"clauses":    clauses,
		"sort":       record.Object{"field": record.String(q.Sort.Field), "direction": record.String(string(direction))},
		"group":      record.String(q.Group.Field),
		"aggregates": aggs,
		"limit":      record.Number(float64(q.Limit)),
	}
	return record.MarshalCanonical(obj)
}

// Hash returns the content-addressed identity of the query.
func (q Query) Hash() (string, error) {
	canonical, err := q.Canonical()
	if err != nil {
		return "", fmt.Errorf("query hash: %w", err)
	}
	return record.Hash(record.DomainQuery, canonical), nil
}
