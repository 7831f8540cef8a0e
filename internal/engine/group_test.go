package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
	"github.com/roach88/facetview/internal/testutil"
)

func keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestGroupBy_FirstSeenOrder(t *testing.T) {
	var records []record.Record
	for i, c := range []string{"X", "Y", "X", "Z"} {
		records = append(records, record.New(
			record.F("name", record.String(string(rune('a'+i)))),
			record.F("category", record.String(c)),
		))
	}

	groups := GroupBy(records, query.Group{Field: "category"})
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"X", "Y", "Z"}, keys(groups))
	assert.Equal(t, []string{"a", "c"}, testutil.Names(groups[0].Records))
	assert.Equal(t, []string{"b"}, testutil.Names(groups[1].Records))
	assert.Equal(t, []string{"d"}, testutil.Names(groups[2].Records))
	assert.Equal(t, record.String("X"), groups[0].Value)
	assert.Equal(t, 2, groups[0].Count())
}

func TestGroupBy_Leads(t *testing.T) {
	leads := testutil.Leads()

	t.Run("enum", func(t *testing.T) {
		groups := GroupBy(leads, query.Group{Field: "stage"})
		assert.Equal(t, []string{"new", "qualified", "won", "lost"}, keys(groups))
		assert.Equal(t, []string{"Acme Corp", "Cobalt Inc"}, testutil.Names(groups[0].Records))
		assert.Equal(t, []string{"delta co", "Foxtrot"}, testutil.Names(groups[2].Records))
	})

	t.Run("missing values", func(t *testing.T) {
		groups := GroupBy(leads, query.Group{Field: "region"})
		assert.Equal(t, []string{"west", "east", MissingKey}, keys(groups))

		missing, ok := FindGroup(groups, MissingKey)
		require.True(t, ok)
		assert.True(t, missing.Missing)
		assert.Nil(t, missing.Value)
		assert.Equal(t, []string{"delta co"}, testutil.Names(missing.Records))
	})

	t.Run("numbers bucket by exact value", func(t *testing.T) {
		groups := GroupBy(leads, query.Group{Field: "score"})
		assert.Equal(t, []string{"40", "75", "55", "90", MissingKey, "20"}, keys(groups))

		g, ok := FindGroup(groups, "75")
		require.True(t, ok)
		assert.Equal(t, []string{"Beta LLC", "Echo Partners"}, testutil.Names(g.Records))
	})

	t.Run("dates", func(t *testing.T) {
		groups := GroupBy(leads, query.Group{Field: "created"})
		assert.Len(t, groups, len(leads))
		assert.Equal(t, "2024-01-05T00:00:00Z", groups[0].Key)
	})
}

func TestGroupBy_SortedInputSurfacesFirst(t *testing.T) {
	sorted := Sort(testutil.Leads(), query.Sort{Field: "score", Direction: query.Desc})
	groups := GroupBy(sorted, query.Group{Field: "stage"})

	assert.Equal(t, []string{"won", "qualified", "new", "lost"}, keys(groups))
	assert.Equal(t, []string{"delta co", "Foxtrot"}, testutil.Names(groups[0].Records))
}

func TestGroupBy_PartitionIsComplete(t *testing.T) {
	leads := testutil.Leads()

	for _, field := range []string{"name", "stage", "region", "score", "hot", "created", "owner.name", "nope"} {
		t.Run(field, func(t *testing.T) {
			groups := GroupBy(leads, query.Group{Field: field})

			seen := make(map[string]int)
			total := 0
			for _, g := range groups {
				total += g.Count()
				for _, n := range testutil.Names(g.Records) {
					seen[n]++
				}
			}
			assert.Equal(t, len(leads), total)
			for _, n := range testutil.Names(leads) {
				assert.Equal(t, 1, seen[n], "%s must appear exactly once", n)
			}
		})
	}
}

func TestGroupBy_Inactive(t *testing.T) {
	assert.Nil(t, GroupBy(testutil.Leads(), query.Group{}))
	assert.Empty(t, GroupBy(nil, query.Group{Field: "stage"}))
}

func TestFindGroup_Missing(t *testing.T) {
	_, ok := FindGroup(GroupBy(testutil.Leads(), query.Group{Field: "stage"}), "archived")
	assert.False(t, ok)
}

func TestFacetCounts(t *testing.T) {
	facets := FacetCounts(testutil.Leads(), "stage")
	assert.Equal(t, []Facet{
		{Key: "new", Value: record.String("new"), Count: 2},
		{Key: "qualified", Value: record.String("qualified"), Count: 2},
		{Key: "won", Value: record.String("won"), Count: 2},
		{Key: "lost", Value: record.String("lost"), Count: 1},
	}, facets)

	facets = FacetCounts(testutil.Leads(), "region")
	assert.Equal(t, []Facet{
		{Key: "west", Value: record.String("west"), Count: 3},
		{Key: "east", Value: record.String("east"), Count: 3},
		{Key: MissingKey, Missing: true, Count: 1},
	}, facets)
}

func TestGroupBy_DistinctBuckets(t *testing.T) {
	records := []record.Record{
		record.New(record.F("name", record.String("a")), record.F("tag", record.String(""))),
		record.New(record.F("name", record.String("b"))),
		record.New(record.F("name", record.String("c")), record.F("tag", record.Bool(true))),
		record.New(record.F("name", record.String("d")), record.F("tag", record.String("true"))),
		record.New(record.F("name", record.String("e")), record.F("tag", record.Null{})),
		record.New(record.F("name", record.String("f")), record.F("tag", record.String(""))),
	}

	groups := GroupBy(records, query.Group{Field: "tag"})
	require.Len(t, groups, 4)

	assert.Equal(t, "", groups[0].Key)
	assert.False(t, groups[0].Missing)
	assert.Equal(t, record.String(""), groups[0].Value)
	assert.Equal(t, []string{"a", "f"}, testutil.Names(groups[0].Records))

	assert.True(t, groups[1].Missing)
	assert.Nil(t, groups[1].Value)
	assert.Equal(t, []string{"b", "e"}, testutil.Names(groups[1].Records))

	assert.Equal(t, record.Bool(true), groups[2].Value)
	assert.Equal(t, []string{"c"}, testutil.Names(groups[2].Records))
	assert.Equal(t, record.String("true"), groups[3].Value)
	assert.Equal(t, []string{"d"}, testutil.Names(groups[3].Records))

	missing, ok := FindGroup(groups, MissingKey)
	require.True(t, ok)
	assert.True(t, missing.Missing)

	facets := FacetCounts(records, "tag")
	assert.Equal(t, []Facet{
		{Key: "", Value: record.String(""), Count: 2},
		{Key: MissingKey, Missing: true, Count: 2},
		{Key: "true", Value: record.Bool(true), Count: 1},
		{Key: "true", Value: record.String("true"), Count: 1},
	}, facets)
}
