package query

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/facetview/internal/record"
)

// symbolOperators are checked in order; two-character symbols come first so
// "==" is never read as "=".
var symbolOperators = []struct {
	symbol string
	op     Operator
}{
	{"==", OpEquals},
	{"!=", OpNotEquals},
	{">", OpGreaterThan},
	{"<", OpLessThan},
	{"~", OpContains},
	{"=", OpEquals},
}

// ParseClause parses a filter expression into a validated clause.
//
// Supported forms (values are typed by the schema field):
//   - "field == value", "field = value"  → equals
//   - "field != value"                   → notEquals
//   - "field ~ text"                     → contains
//   - "field > value", "field < value"   → greaterThan, lessThan
//   - "field between lo..hi"             → between (inclusive)
//   - "field in a|b|c"                   → in
//
// The operator is read directly after the field name, so the value may
// contain operator symbols. String values may be quoted with ' or ".
func ParseClause(schema *record.Schema, expr string) (Clause, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Clause{}, newError(ErrCodeSyntax, "", "", "empty expression")
	}

	field, rest := leadingField(expr)
	if field == "" {
		return Clause{}, newError(ErrCodeSyntax, "", "", "missing field name in %q", expr)
	}

	for _, so := range symbolOperators {
		if !strings.HasPrefix(rest, so.symbol) {
			continue
		}
		raw := strings.TrimSpace(rest[len(so.symbol):])
		if strings.HasPrefix(raw, "=") {
			return Clause{}, newError(ErrCodeSyntax, field, "",
				"unsupported operator %s= in %q", so.symbol, expr)
		}
		f, err := lookupField(schema, field, so.op)
		if err != nil {
			return Clause{}, err
		}
		value, err := literal(raw, f, so.op)
		if err != nil {
			return Clause{}, err
		}
		return NewClause(schema, field, so.op, value)
	}

	if tail, ok := cutWord(rest, "between"); ok {
		return parseBetween(schema, field, tail)
	}
	if tail, ok := cutWord(rest, "in"); ok {
		return parseIn(schema, field, tail)
	}

	return Clause{}, newError(ErrCodeSyntax, field, "", "no operator found in %q", expr)
}

// leadingField splits expr into the field name, which runs up to the first
// space or operator symbol, and the remainder with leading space trimmed.
func leadingField(expr string) (string, string) {
	end := strings.IndexFunc(expr, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("=<>!~", r)
	})
	if end < 0 {
		return expr, ""
	}
	return expr[:end], strings.TrimLeftFunc(expr[end:], unicode.IsSpace)
}

// cutWord reports whether rest starts with the keyword word, matched
// case-insensitively and followed by a space, and returns what follows it.
func cutWord(rest, word string) (string, bool) {
	if len(rest) <= len(word) || !strings.EqualFold(rest[:len(word)], word) {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(rest[len(word):])
	if !unicode.IsSpace(r) {
		return "", false
	}
	return strings.TrimSpace(rest[len(word):]), true
}

func parseBetween(schema *record.Schema, field, rest string) (Clause, error) {
	f, err := lookupField(schema, field, OpBetween)
	if err != nil {
		return Clause{}, err
	}
	lo, hi, ok := strings.Cut(rest, "..")
	if !ok {
		return Clause{}, newError(ErrCodeSyntax, field, OpBetween, "between requires lo..hi, got %q", rest)
	}
	loVal, err := literal(lo, f, OpBetween)
	if err != nil {
		return Clause{}, err
	}
	hiVal, err := literal(hi, f, OpBetween)
	if err != nil {
		return Clause{}, err
	}
	return NewClause(schema, field, OpBetween, record.Array{loVal, hiVal})
}

func parseIn(schema *record.Schema, field, rest string) (Clause, error) {
	f, err := lookupField(schema, field, OpIn)
	if err != nil {
		return Clause{}, err
	}
	var members record.Array
	if strings.TrimSpace(rest) != "" {
		for _, part := range strings.Split(rest, "|") {
			v, err := literal(part, f, OpIn)
			if err != nil {
				return Clause{}, err
			}
			members = append(members, v)
		}
	}
	if members == nil {
		members = record.Array{}
	}
	return NewClause(schema, field, OpIn, members)
}

func lookupField(schema *record.Schema, name string, op Operator) (record.Field, error) {
	if name == "" {
		return record.Field{}, newError(ErrCodeSyntax, "", op, "missing field name")
	}
	f, ok := schema.Field(name)
	if !ok {
		return record.Field{}, newError(ErrCodeUnknownField, name, op, "field not in schema")
	}
	return f, nil
}

// literal parses a value for op. contains always takes the raw text so a
// mistyped field still reports INVALID_OPERATOR_FOR_TYPE rather than a parse error.
func literal(raw string, f record.Field, op Operator) (record.Value, error) {
	if op == OpContains || !f.Type.Scalar() {
		return record.ParseLiteral(raw, record.Field{Name: f.Name, Type: record.TypeString})
	}
	if op.ordering() && !f.Type.Ordered() {
		return record.ParseLiteral(raw, record.Field{Name: f.Name, Type: record.TypeString})
	}
	v, err := record.ParseLiteral(raw, f)
	if err != nil {
		return nil, newError(ErrCodeInvalidValue, f.Name, op, "%v", err)
	}
	return v, nil
}

func (op Operator) ordering() bool {
	return op == OpGreaterThan || op == OpLessThan || op == OpBetween
}

// ParseSort parses "field", "field:asc" or "field:desc".
func ParseSort(schema *record.Schema, expr string) (Sort, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Sort{}, nil
	}
	field, dir, _ := strings.Cut(expr, ":")
	s := Sort{Field: strings.TrimSpace(field), Direction: Direction(strings.ToLower(strings.TrimSpace(dir)))}
	v := &validator{schema: schema}
	v.validateSort(s)
	if len(v.errs) > 0 {
		return Sort{}, v.errs[0]
	}
	return s, nil
}

// ParseGroup parses a group field name.
func ParseGroup(schema *record.Schema, expr string) (Group, error) {
	g := Group{Field: strings.TrimSpace(expr)}
	v := &validator{schema: schema}
	v.validateGroup(g)
	if len(v.errs) > 0 {
		return Group{}, v.errs[0]
	}
	return g, nil
}

// ParseAggregate parses "name=kind(args)".
//
//	total=sum(amount)
//	avg_deal=average(amount,2)
//	leads=count()
//	with_owner=count(owner)
//	conversion=rate(wins,total,1)
//
// The optional trailing integer argument is the rounding precision.
func ParseAggregate(schema *record.Schema, expr string) (Aggregate, error) {
	expr = strings.TrimSpace(expr)
	name, call, ok := strings.Cut(expr, "=")
	if !ok {
		return Aggregate{}, newError(ErrCodeSyntax, "", "", "aggregate must be name=kind(args), got %q", expr)
	}
	name = strings.TrimSpace(name)
	call = strings.TrimSpace(call)

	open := strings.Index(call, "(")
	if open <= 0 || !strings.HasSuffix(call, ")") {
		return Aggregate{}, newError(ErrCodeSyntax, "", "", "aggregate must be name=kind(args), got %q", expr)
	}
	kind := AggregateKind(strings.ToLower(strings.TrimSpace(call[:open])))
	if kind == "avg" {
		kind = AggAverage
	}

	var args []string
	if inner := strings.TrimSpace(call[open+1 : len(call)-1]); inner != "" {
		for _, a := range strings.Split(inner, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}

	agg := Aggregate{Name: name, Kind: kind}
	fieldArgs := 1
	if kind == AggRate {
		fieldArgs = 2
	}
	if len(args) > fieldArgs {
		p, err := strconv.Atoi(args[len(args)-1])
		if err != nil {
			return Aggregate{}, newError(ErrCodeSyntax, "", "",
				"%s: too many arguments, or precision %q is not an integer", name, args[len(args)-1])
		}
		agg.Precision = &p
		args = args[:len(args)-1]
	}

	switch kind {
	case AggRate:
		if len(args) != 2 {
			return Aggregate{}, newError(ErrCodeSyntax, "", "", "%s: rate takes numerator,denominator", name)
		}
		agg.Numerator, agg.Denominator = args[0], args[1]
	default:
		if len(args) == 1 {
			agg.Field = args[0]
		}
	}

	v := &validator{schema: schema}
	v.validateAggregates([]Aggregate{agg})
	if len(v.errs) > 0 {
		return Aggregate{}, v.errs[0]
	}
	return agg, nil
}
