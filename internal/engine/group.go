package engine

import (
	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// MissingKey is the group key for records where the group field is absent,
// null or not a scalar. Such groups also set Missing, which tells them apart
// from a group of real empty strings.
const MissingKey = ""

// Group is one partition of a grouped result.
type Group struct {
	// Key is the canonical string form of the group value (record.Key).
	// Values of different kinds can share a Key (Bool(true) and
	// String("true")); they still form separate groups.
	Key string `json:"key"`

	// Value is the group's value, or nil for the missing group.
	Value record.Value `json:"value"`

	// Missing marks the group of records without a scalar value.
	Missing bool `json:"missing,omitempty"`

	// Records are the members in input order.
	Records []record.Record `json:"records"`

	// Metrics holds the aggregates computed over Records. Nil when the
	// query has no aggregates.
	Metrics map[string]Metric `json:"metrics,omitempty"`
}

// Count returns the number of records in the group.
func (g Group) Count() int {
	return len(g.Records)
}

// GroupBy partitions records by the distinct values of spec.Field.
//
// Groups appear in the order their key is first seen in records, and each
// group keeps its members in input order. Every record lands in exactly one
// group. Numbers and dates bucket by exact value. An inactive spec returns nil.
func GroupBy(records []record.Record, spec query.Group) []Group {
	if !spec.Active() {
		return nil
	}

	var groups []Group
	index := make(map[string]int)
	for _, r := range records {
		b := bucketOf(r, spec.Field)
		i, ok := index[b.id]
		if !ok {
			i = len(groups)
			index[b.id] = i
			groups = append(groups, Group{Key: b.key, Value: b.value, Missing: b.value == nil})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// bucket identifies one partition of a field's values. id is "" for the
// missing bucket and record.TypedKey otherwise, so it never collides across
// kinds or with a real empty string.
type bucket struct {
	id    string
	key   string
	value record.Value
}

func bucketOf(r record.Record, field string) bucket {
	v, ok := r.Get(field)
	if !ok || !record.IsScalar(v) {
		return bucket{key: MissingKey}
	}
	return bucket{id: record.TypedKey(v), key: record.Key(v), value: v}
}

// FindGroup returns the first group with the given key. MissingKey finds
// the missing group ahead of a group of empty strings.
func FindGroup(groups []Group, key string) (Group, bool) {
	if key == MissingKey {
		for _, g := range groups {
			if g.Missing {
				return g, true
			}
		}
	}
	for _, g := range groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Facet is one distinct value of a field and how many records hold it.
type Facet struct {
	Key     string       `json:"key"`
	Value   record.Value `json:"value"`
	Missing bool         `json:"missing,omitempty"`
	Count   int          `json:"count"`
}

// FacetCounts returns the distinct values of field with their record
// counts, in first-seen order. Records missing the field are counted under
// MissingKey.
func FacetCounts(records []record.Record, field string) []Facet {
	var facets []Facet
	index := make(map[string]int)
	for _, r := range records {
		b := bucketOf(r, field)
		i, ok := index[b.id]
		if !ok {
			i = len(facets)
			index[b.id] = i
			facets = append(facets, Facet{Key: b.key, Value: b.value, Missing: b.value == nil})
		}
		facets[i].Count++
	}
	return facets
}
