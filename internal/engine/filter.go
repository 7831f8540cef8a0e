package engine

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// matcher reports whether one record satisfies one clause.
type matcher func(record.Record) bool

// Filter returns the records that match every clause and the search, in
// input order. The input slice is never modified.
//
// Clauses are assumed to be valid for the records' schema (see
// query.Validate). A clause whose field is absent on a record fails for that
// record; an unknown operator fails for every record.
func Filter(records []record.Record, clauses []query.Clause, search query.Search) []record.Record {
	f := newFilterer()
	matchers := make([]matcher, len(clauses))
	for i, c := range clauses {
		matchers[i] = f.compile(c)
	}
	var needle string
	if search.Active() {
		needle = f.fold(search.Text)
	}

	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if search.Active() && !f.matchSearch(r, needle, search.Fields) {
			continue
		}
		if !matchAll(r, matchers) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchAll(r record.Record, matchers []matcher) bool {
	for _, m := range matchers {
		if !m(r) {
			return false
		}
	}
	return true
}

// filterer holds per-call state. cases.Caser is not safe for concurrent use,
// so every Filter call builds its own.
type filterer struct {
	caser cases.Caser
}

func newFilterer() *filterer {
	return &filterer{caser: cases.Fold()}
}

func (f *filterer) fold(s string) string {
	return f.caser.String(s)
}

// containsFold is a Unicode case-insensitive substring test. needle must
// already be folded.
func (f *filterer) containsFold(haystack, needle string) bool {
	return strings.Contains(f.fold(haystack), needle)
}

// matchSearch reports whether any search field contains needle. With no
// fields listed, every top-level string value is searched.
func (f *filterer) matchSearch(r record.Record, needle string, fields []string) bool {
	if len(fields) == 0 {
		for _, v := range r {
			if s, ok := v.(record.String); ok && f.containsFold(string(s), needle) {
				return true
			}
		}
		return false
	}
	for _, name := range fields {
		v, ok := r.Get(name)
		if !ok || !record.IsScalar(v) {
			continue
		}
		if f.containsFold(record.Text(v), needle) {
			return true
		}
	}
	return false
}

func (f *filterer) compile(c query.Clause) matcher {
	field := c.Field
	switch c.Operator {
	case query.OpEquals:
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			return ok && record.Equal(v, c.Value)
		}

	case query.OpNotEquals:
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			return ok && !record.Equal(v, c.Value)
		}

	case query.OpContains:
		s, ok := c.Value.(record.String)
		if !ok {
			return never
		}
		needle := f.fold(string(s))
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			if !ok {
				return false
			}
			str, ok := v.(record.String)
			return ok && f.containsFold(string(str), needle)
		}

	case query.OpGreaterThan:
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			if !ok {
				return false
			}
			n, ok := compareOrdered(v, c.Value)
			return ok && n > 0
		}

	case query.OpLessThan:
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			if !ok {
				return false
			}
			n, ok := compareOrdered(v, c.Value)
			return ok && n < 0
		}

	case query.OpBetween:
		bounds, ok := c.Value.(record.Array)
		if !ok || len(bounds) != 2 {
			return never
		}
		lo, hi := bounds[0], bounds[1]
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			if !ok {
				return false
			}
			above, ok1 := compareOrdered(v, lo)
			below, ok2 := compareOrdered(v, hi)
			return ok1 && ok2 && above >= 0 && below <= 0
		}

	case query.OpIn:
		members, ok := c.Value.(record.Array)
		if !ok {
			return never
		}
		set := make(map[string]struct{}, len(members))
		for _, m := range members {
			if record.IsScalar(m) {
				set[record.TypedKey(m)] = struct{}{}
			}
		}
		return func(r record.Record) bool {
			v, ok := r.Get(field)
			if !ok || !record.IsScalar(v) {
				return false
			}
			_, hit := set[record.TypedKey(v)]
			return hit
		}

	default:
		return never
	}
}

func never(record.Record) bool { return false }

// compareOrdered compares two numbers or two dates. ok is false for any
// other combination of kinds.
func compareOrdered(a, b record.Value) (int, bool) {
	switch x := a.(type) {
	case record.Number:
		y, ok := b.(record.Number)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case record.Date:
		y, ok := b.(record.Date)
		if !ok {
			return 0, false
		}
		return x.Time().Compare(y.Time()), true
	default:
		return 0, false
	}
}
