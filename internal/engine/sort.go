package engine

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// Sort returns a copy of records ordered by spec. The sort is stable:
// records with equal keys keep their input order. An inactive spec returns
// an unchanged copy.
//
// Numbers compare numerically, dates chronologically and strings with a
// case-insensitive collator for the configured locale (WithLocale, English
// by default). A missing value sorts below every present value. When a
// field holds values of different kinds, kinds are ordered bool < number <
// date < string. Descending order mirrors the ascending comparator.
func Sort(records []record.Record, spec query.Sort, opts ...Option) []record.Record {
	o := buildOptions(opts)
	return sortRecords(records, spec, o.locale)
}

func sortRecords(records []record.Record, spec query.Sort, locale language.Tag) []record.Record {
	out := slices.Clone(records)
	if out == nil {
		out = []record.Record{}
	}
	if !spec.Active() || len(out) < 2 {
		return out
	}

	c := newComparator(locale)
	field := spec.Field
	asc := func(a, b record.Record) int {
		av, aok := a.Get(field)
		bv, bok := b.Get(field)
		return c.compare(av, aok, bv, bok)
	}
	order := asc
	if spec.Descending() {
		order = func(a, b record.Record) int { return asc(b, a) }
	}

	slices.SortStableFunc(out, order)
	return out
}

// comparator orders single field values. A collate.Collator is not safe for
// concurrent use, so each sort builds its own.
type comparator struct {
	coll *collate.Collator
}

func newComparator(locale language.Tag) *comparator {
	return &comparator{coll: collate.New(locale, collate.IgnoreCase)}
}

func (c *comparator) compare(a record.Value, aok bool, b record.Value, bok bool) int {
	if aok && !record.IsScalar(a) {
		aok = false
	}
	if bok && !record.IsScalar(b) {
		bok = false
	}
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}

	if ka, kb := record.KindOf(a), record.KindOf(b); ka != kb {
		return cmp.Compare(ka, kb)
	}

	switch x := a.(type) {
	case record.Number:
		return cmp.Compare(float64(x), float64(b.(record.Number)))
	case record.Date:
		return x.Time().Compare(b.(record.Date).Time())
	case record.String:
		return c.coll.CompareString(string(x), string(b.(record.String)))
	case record.Bool:
		y := b.(record.Bool)
		switch {
		case x == y:
			return 0
		case !bool(x):
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}
