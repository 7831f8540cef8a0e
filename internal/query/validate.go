package query

import (
	"errors"
	"fmt"

	"github.com/roach88/facetview/internal/record"
)

// MaxPrecision bounds Aggregate.Precision.
const MaxPrecision = 10

// NewClause builds a clause and checks it against the schema.
// Returns a *Error when the field is unknown, the operator does not apply to
// the field's type, or the value does not fit.
func NewClause(schema *record.Schema, field string, op Operator, value record.Value) (Clause, error) {
	c := Clause{Field: field, Operator: op, Value: value}
	if err := CheckClause(schema, c); err != nil {
		return Clause{}, err
	}
	return c, nil
}

// MustClause is like NewClause but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustClause(schema *record.Schema, field string, op Operator, value record.Value) Clause {
	c, err := NewClause(schema, field, op, value)
	if err != nil {
		panic(err)
	}
	return c
}

// CheckClause validates a single clause against the schema.
func CheckClause(schema *record.Schema, c Clause) error {
	if !c.Operator.Valid() {
		return newError(ErrCodeUnknownOperator, c.Field, c.Operator,
			"unsupported operator %q: must be one of %v", c.Operator, Operators)
	}
	f, ok := schema.Field(c.Field)
	if !ok {
		return newError(ErrCodeUnknownField, c.Field, c.Operator, "field not in schema")
	}
	if !f.Type.Scalar() {
		return newError(ErrCodeInvalidOperator, c.Field, c.Operator,
			"%s fields are not filterable", f.Type)
	}
	if c.Value == nil {
		return newError(ErrCodeInvalidValue, c.Field, c.Operator, "value is required")
	}

	switch c.Operator {
	case OpContains:
		if !f.Type.Textual() {
			return newError(ErrCodeInvalidOperator, c.Field, c.Operator,
				"contains requires a string field, got %s", f.Type)
		}
		if _, ok := c.Value.(record.String); !ok {
			return newError(ErrCodeInvalidValue, c.Field, c.Operator,
				"contains requires a string value, got %s", record.KindOf(c.Value))
		}
		return nil

	case OpGreaterThan, OpLessThan:
		if !f.Type.Ordered() {
			return newError(ErrCodeInvalidOperator, c.Field, c.Operator,
				"ordering requires a number or date field, got %s", f.Type)
		}
		return checkScalar(f, c)

	case OpBetween:
		if !f.Type.Ordered() {
			return newError(ErrCodeInvalidOperator, c.Field, c.Operator,
				"ordering requires a number or date field, got %s", f.Type)
		}
		bounds, ok := c.Value.(record.Array)
		if !ok || len(bounds) != 2 {
			return newError(ErrCodeInvalidValue, c.Field, c.Operator,
				"between requires exactly two bounds")
		}
		for _, b := range bounds {
			if err := checkScalar(f, Clause{Field: c.Field, Operator: c.Operator, Value: b}); err != nil {
				return err
			}
		}
		if boundAfter(bounds[0], bounds[1]) {
			return newError(ErrCodeInvalidValue, c.Field, c.Operator,
				"lower bound %s is above upper bound %s", record.Text(bounds[0]), record.Text(bounds[1]))
		}
		return nil

	case OpIn:
		members, ok := c.Value.(record.Array)
		if !ok {
			return newError(ErrCodeInvalidValue, c.Field, c.Operator,
				"in requires a list of values, got %s", record.KindOf(c.Value))
		}
		for _, m := range members {
			if err := checkScalar(f, Clause{Field: c.Field, Operator: c.Operator, Value: m}); err != nil {
				return err
			}
		}
		return nil

	default: // OpEquals, OpNotEquals
		return checkScalar(f, c)
	}
}

// checkScalar verifies c.Value is a single value of the field's type and,
// for enums, a member of the allowed set.
func checkScalar(f record.Field, c Clause) error {
	kind := record.KindOf(c.Value)
	if !f.Type.Accepts(kind) {
		return newError(ErrCodeInvalidValue, c.Field, c.Operator,
			"%s field cannot be compared with a %s value", f.Type, kind)
	}
	if s, ok := c.Value.(record.String); ok && !f.Allows(string(s)) {
		return newError(ErrCodeInvalidValue, c.Field, c.Operator,
			"%q is not one of %v", string(s), f.Values)
	}
	return nil
}

func boundAfter(lo, hi record.Value) bool {
	switch l := lo.(type) {
	case record.Number:
		h, ok := hi.(record.Number)
		return ok && l > h
	case record.Date:
		h, ok := hi.(record.Date)
		return ok && l.Time().After(h.Time())
	default:
		return false
	}
}

// Validate checks every part of q against the schema and returns all
// problems joined into one error (nil when the query is valid).
//
// Validate is a pure function with no side effects.
func Validate(schema *record.Schema, q Query) error {
	v := &validator{schema: schema}
	v.validateSearch(q.Search)
	for _, c := range q.Clauses {
		v.add(CheckClause(schema, c))
	}
	v.validateSort(q.Sort)
	v.validateGroup(q.Group)
	v.validateAggregates(q.Aggregates)
	if q.Limit < 0 {
		v.add(newError(ErrCodeInvalidValue, "", "", "limit must not be negative, got %d", q.Limit))
	}
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	schema *record.Schema
	errs   []error
}

func (v *validator) add(err error) {
	if err != nil {
		v.errs = append(v.errs, err)
	}
}

func (v *validator) scalarField(name string, code ErrorCode, what string) (record.Field, bool) {
	f, ok := v.schema.Field(name)
	if !ok {
		v.add(newError(ErrCodeUnknownField, name, "", "%s field not in schema", what))
		return record.Field{}, false
	}
	if !f.Type.Scalar() {
		v.add(newError(code, name, "", "cannot %s by a %s field", what, f.Type))
		return record.Field{}, false
	}
	return f, true
}

func (v *validator) validateSearch(s Search) {
	for _, name := range s.Fields {
		f, ok := v.schema.Field(name)
		if !ok {
			v.add(newError(ErrCodeInvalidSearch, name, "", "search field not in schema"))
			continue
		}
		if !f.Type.Scalar() {
			v.add(newError(ErrCodeInvalidSearch, name, "", "%s fields are not searchable", f.Type))
		}
	}
}

func (v *validator) validateSort(s Sort) {
	if !s.Active() {
		if s.Direction != "" {
			v.add(newError(ErrCodeInvalidSort, "", "", "direction %q given without a field", s.Direction))
		}
		return
	}
	v.scalarField(s.Field, ErrCodeInvalidSort, "sort")
	switch s.Direction {
	case "", Asc, Desc:
	default:
		v.add(newError(ErrCodeInvalidSort, s.Field, "", "direction must be asc or desc, got %q", s.Direction))
	}
}

func (v *validator) validateGroup(g Group) {
	if g.Active() {
		v.scalarField(g.Field, ErrCodeInvalidGroup, "group")
	}
}

func (v *validator) validateAggregates(aggs []Aggregate) {
	seen := make(map[string]bool, len(aggs))
	for _, a := range aggs {
		if a.Name == "" {
			v.add(newError(ErrCodeInvalidAggregate, "", "", "aggregate name is required"))
		} else if seen[a.Name] {
			v.add(newError(ErrCodeInvalidAggregate, "", "", "duplicate aggregate name %q", a.Name))
		}
		seen[a.Name] = true

		if a.Precision != nil && (*a.Precision < 0 || *a.Precision > MaxPrecision) {
			v.add(newError(ErrCodeInvalidAggregate, "", "",
				"%s: precision must be between 0 and %d", a.Name, MaxPrecision))
		}

		switch a.Kind {
		case AggSum, AggAverage, AggMin, AggMax:
			v.numericField(a.Name, "field", a.Field)
		case AggCount:
			if a.Field != "" {
				if _, ok := v.schema.Field(a.Field); !ok {
					v.add(newError(ErrCodeUnknownField, a.Field, "", "%s: count field not in schema", a.Name))
				}
			}
		case AggRate:
			v.numericField(a.Name, "numerator", a.Numerator)
			v.numericField(a.Name, "denominator", a.Denominator)
		default:
			v.add(newError(ErrCodeInvalidAggregate, "", "",
				"%s: unknown kind %q: must be one of %v", a.Name, a.Kind, AggregateKinds))
		}
	}
}

func (v *validator) numericField(aggName, role, name string) {
	if name == "" {
		v.add(newError(ErrCodeInvalidAggregate, "", "", "%s: %s is required", aggName, role))
		return
	}
	f, ok := v.schema.Field(name)
	if !ok {
		v.add(newError(ErrCodeUnknownField, name, "", "%s: %s not in schema", aggName, role))
		return
	}
	if f.Type != record.TypeNumber {
		v.add(newError(ErrCodeInvalidAggregate, name, "",
			"%s: %s must be a number field, got %s", aggName, role, f.Type))
	}
}

// Summary renders a validation error on one line.
func Summary(err error) string {
	errs := Errors(err)
	switch len(errs) {
	case 0:
		if err == nil {
			return ""
		}
		return err.Error()
	case 1:
		return errs[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", errs[0].Error(), len(errs)-1)
	}
}
