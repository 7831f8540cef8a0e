// Package compiler turns CUE view definitions into validated queries.
//
// A view file declares named views under the top-level "view" struct:
//
//	view: leads: {
//		schema: {
//			name:  "string"
//			stage: {enum: ["new", "won"]}
//		}
//		filter: [{field: "stage", op: "equals", value: "won"}]
//		sort: {field: "name", direction: "asc"}
//	}
//
// Compilation uses the CUE SDK's Go API directly (not a CLI subprocess).
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// View is a compiled, validated view definition.
type View struct {
	Name   string
	Schema *record.Schema
	Query  query.Query
	Pos    token.Pos
}

// CompileView parses a CUE value into a View and validates its query
// against its schema.
//
// The CUE value should be the view struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`view: leads: { ... }`)
//	view, err := CompileView(v.LookupPath(cue.ParsePath("view.leads")))
func CompileView(v cue.Value) (*View, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	view := &View{Pos: v.Pos()}

	// View name comes from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		view.Name = labels[len(labels)-1].String()
	}

	schemaVal := v.LookupPath(cue.ParsePath("schema"))
	if !schemaVal.Exists() {
		return nil, &CompileError{
			Field:   "schema",
			Message: "schema is required",
			Pos:     v.Pos(),
		}
	}
	schema, err := parseSchema(schemaVal)
	if err != nil {
		return nil, err
	}
	view.Schema = schema

	q := &view.Query
	if q.Search, err = parseSearch(v); err != nil {
		return nil, err
	}
	if q.Clauses, err = parseFilter(v, schema); err != nil {
		return nil, err
	}
	if q.Sort, err = parseSort(v); err != nil {
		return nil, err
	}
	if q.Group.Field, err = optionalString(v, "group.field"); err != nil {
		return nil, err
	}
	if q.Aggregates, err = parseAggregates(v); err != nil {
		return nil, err
	}
	if limitVal := v.LookupPath(cue.ParsePath("limit")); limitVal.Exists() {
		n, err := limitVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		q.Limit = int(n)
	}

	if err := query.Validate(schema, *q); err != nil {
		return nil, &CompileError{
			Field:   "view",
			Message: query.Summary(err),
			Pos:     v.Pos(),
			Err:     err,
		}
	}
	return view, nil
}

// parseSchema reads field declarations in source order. Each field is
// either a type name ("string", "number", ...) or {enum: [...]}.
func parseSchema(v cue.Value) (*record.Schema, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []record.Field
	for iter.Next() {
		name := iter.Label()
		fv := iter.Value()

		if s, err := fv.String(); err == nil {
			t, err := record.ParseFieldType(s)
			if err != nil {
				return nil, &CompileError{Field: "schema." + name, Message: err.Error(), Pos: fv.Pos()}
			}
			fields = append(fields, record.Field{Name: name, Type: t})
			continue
		}

		enumVal := fv.LookupPath(cue.ParsePath("enum"))
		if !enumVal.Exists() {
			return nil, &CompileError{
				Field:   "schema." + name,
				Message: "must be a type name or {enum: [...]}",
				Pos:     fv.Pos(),
			}
		}
		values, err := stringList(enumVal)
		if err != nil {
			return nil, err
		}
		fields = append(fields, record.Field{Name: name, Type: record.TypeEnum, Values: values})
	}

	schema, err := record.NewSchema(fields...)
	if err != nil {
		return nil, &CompileError{Field: "schema", Message: err.Error(), Pos: v.Pos()}
	}
	return schema, nil
}

func parseSearch(v cue.Value) (query.Search, error) {
	var s query.Search
	text, err := optionalString(v, "search.text")
	if err != nil {
		return s, err
	}
	s.Text = text

	if fieldsVal := v.LookupPath(cue.ParsePath("search.fields")); fieldsVal.Exists() {
		if s.Fields, err = stringList(fieldsVal); err != nil {
			return s, err
		}
	}
	return s, nil
}

// parseFilter reads the clause list. Values are checked against the schema
// as each clause is built, so the first bad clause reports its own position.
func parseFilter(v cue.Value, schema *record.Schema) ([]query.Clause, error) {
	filterVal := v.LookupPath(cue.ParsePath("filter"))
	if !filterVal.Exists() {
		return nil, nil
	}

	iter, err := filterVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var clauses []query.Clause
	for i := 0; iter.Next(); i++ {
		cv := iter.Value()
		attr := fmt.Sprintf("filter[%d]", i)

		field, err := requiredString(cv, "field", attr)
		if err != nil {
			return nil, err
		}
		op, err := requiredString(cv, "op", attr)
		if err != nil {
			return nil, err
		}
		valueVal := cv.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return nil, &CompileError{Field: attr + ".value", Message: "value is required", Pos: cv.Pos()}
		}
		value, err := literal(valueVal)
		if err != nil {
			return nil, err
		}
		if f, ok := schema.Field(field); ok && f.Type == record.TypeDate {
			if value, err = coerceDates(value); err != nil {
				return nil, &CompileError{Field: attr + ".value", Message: err.Error(), Pos: valueVal.Pos()}
			}
		}

		c, err := query.NewClause(schema, field, query.Operator(op), value)
		if err != nil {
			return nil, &CompileError{Field: attr, Message: err.Error(), Pos: cv.Pos(), Err: err}
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func parseSort(v cue.Value) (query.Sort, error) {
	var s query.Sort
	field, err := optionalString(v, "sort.field")
	if err != nil {
		return s, err
	}
	direction, err := optionalString(v, "sort.direction")
	if err != nil {
		return s, err
	}
	s.Field = field
	s.Direction = query.Direction(direction)
	return s, nil
}

func parseAggregates(v cue.Value) ([]query.Aggregate, error) {
	aggVal := v.LookupPath(cue.ParsePath("aggregate"))
	if !aggVal.Exists() {
		return nil, nil
	}

	iter, err := aggVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var aggs []query.Aggregate
	for i := 0; iter.Next(); i++ {
		av := iter.Value()
		attr := fmt.Sprintf("aggregate[%d]", i)

		var a query.Aggregate
		if a.Name, err = requiredString(av, "name", attr); err != nil {
			return nil, err
		}
		kind, err := requiredString(av, "kind", attr)
		if err != nil {
			return nil, err
		}
		a.Kind = query.AggregateKind(kind)
		if a.Field, err = optionalString(av, "field"); err != nil {
			return nil, err
		}
		if a.Numerator, err = optionalString(av, "numerator"); err != nil {
			return nil, err
		}
		if a.Denominator, err = optionalString(av, "denominator"); err != nil {
			return nil, err
		}
		if pv := av.LookupPath(cue.ParsePath("precision")); pv.Exists() {
			n, err := pv.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			p := int(n)
			a.Precision = &p
		}
		aggs = append(aggs, a)
	}
	return aggs, nil
}

// literal converts a concrete CUE value to a record value.
func literal(v cue.Value) (record.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.String(s), nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.Number(f), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.Bool(b), nil
	case cue.NullKind:
		return record.Null{}, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := record.Array{}
		for iter.Next() {
			elem, err := literal(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("must be a concrete scalar or list, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// coerceDates parses date strings, including list members.
func coerceDates(v record.Value) (record.Value, error) {
	if arr, ok := v.(record.Array); ok {
		out := make(record.Array, len(arr))
		for i, elem := range arr {
			d, err := record.Coerce(elem, record.TypeDate)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	return record.Coerce(v, record.TypeDate)
}

func optionalString(v cue.Value, path string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredString(v cue.Value, name, attr string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return "", &CompileError{
			Field:   attr + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
