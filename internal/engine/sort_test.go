package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
	"github.com/roach88/facetview/internal/testutil"
)

func named(names ...string) []record.Record {
	out := make([]record.Record, len(names))
	for i, n := range names {
		out[i] = record.New(record.F("name", record.String(n)))
	}
	return out
}

func TestSort_Fields(t *testing.T) {
	leads := testutil.Leads()

	tests := []struct {
		name string
		spec query.Sort
		want []string
	}{
		{
			name: "string ignores case",
			spec: query.Sort{Field: "name"},
			want: []string{"Acme Corp", "Beta LLC", "Cobalt Inc", "delta co", "Echo Partners", "Foxtrot", "Gamma Labs"},
		},
		{
			name: "number with missing lowest",
			spec: query.Sort{Field: "score", Direction: query.Asc},
			want: []string{"Foxtrot", "Gamma Labs", "Acme Corp", "Cobalt Inc", "Beta LLC", "Echo Partners", "delta co"},
		},
		{
			name: "number descending keeps ties in input order",
			spec: query.Sort{Field: "score", Direction: query.Desc},
			want: []string{"delta co", "Beta LLC", "Echo Partners", "Cobalt Inc", "Acme Corp", "Gamma Labs", "Foxtrot"},
		},
		{
			name: "date",
			spec: query.Sort{Field: "created"},
			want: []string{"Acme Corp", "Gamma Labs", "Cobalt Inc", "Beta LLC", "Echo Partners", "delta co", "Foxtrot"},
		},
		{
			name: "string with missing lowest and ties stable",
			spec: query.Sort{Field: "region"},
			want: []string{"delta co", "Beta LLC", "Foxtrot", "Gamma Labs", "Acme Corp", "Cobalt Inc", "Echo Partners"},
		},
		{
			name: "bool false first",
			spec: query.Sort{Field: "hot"},
			want: []string{"Beta LLC", "Cobalt Inc", "Echo Partners", "Gamma Labs", "Acme Corp", "delta co", "Foxtrot"},
		},
		{
			name: "nested field",
			spec: query.Sort{Field: "owner.name", Direction: query.Desc},
			want: []string{"Beta LLC", "Acme Corp", "Cobalt Inc", "delta co", "Echo Partners", "Foxtrot", "Gamma Labs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sort(leads, tt.spec)
			assert.Equal(t, tt.want, testutil.Names(got))
		})
	}
}

func TestSort_ScoreScenario(t *testing.T) {
	got := Sort(testutil.ScoreRecords(), query.Sort{Field: "score", Direction: query.Desc})
	assert.Equal(t, []string{"A", "B", "C"}, testutil.Names(got))

	got = Sort(testutil.ScoreRecords(), query.Sort{Field: "score"})
	assert.Equal(t, []string{"B", "C", "A"}, testutil.Names(got))
}

func TestSort_CaseOnlyDifferencesAreTies(t *testing.T) {
	records := named("apple", "banana", "Apple", "APPLE")

	got := Sort(records, query.Sort{Field: "name"})
	assert.Equal(t, []string{"apple", "Apple", "APPLE", "banana"}, testutil.Names(got))

	got = Sort(records, query.Sort{Field: "name", Direction: query.Desc})
	assert.Equal(t, []string{"banana", "apple", "Apple", "APPLE"}, testutil.Names(got))
}

func TestSort_Stability(t *testing.T) {
	var records []record.Record
	for i := 0; i < 120; i++ {
		records = append(records, record.New(
			record.F("idx", record.Number(float64(i))),
			record.F("bucket", record.Number(float64(i%4))),
		))
	}

	for _, dir := range []query.Direction{query.Asc, query.Desc} {
		got := Sort(records, query.Sort{Field: "bucket", Direction: dir})
		assert.Len(t, got, len(records))

		lastIdx := map[float64]float64{}
		for _, r := range got {
			b, _ := r.Get("bucket")
			i, _ := r.Get("idx")
			bucket, idx := float64(b.(record.Number)), float64(i.(record.Number))
			if prev, seen := lastIdx[bucket]; seen {
				assert.Greater(t, idx, prev, "bucket %v reordered (%s)", bucket, dir)
			}
			lastIdx[bucket] = idx
		}
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	leads := testutil.Leads()
	before := testutil.Names(leads)

	got := Sort(leads, query.Sort{Field: "score", Direction: query.Desc})
	assert.Equal(t, before, testutil.Names(leads))
	assert.NotEqual(t, before, testutil.Names(got))
}

func TestSort_InactiveReturnsCopy(t *testing.T) {
	leads := testutil.Leads()

	got := Sort(leads, query.Sort{})
	assert.Equal(t, testutil.Names(leads), testutil.Names(got))

	got[0] = nil
	assert.NotNil(t, leads[0], "copy is independent")

	assert.NotNil(t, Sort(nil, query.Sort{Field: "name"}))
}

func TestSort_MixedKinds(t *testing.T) {
	records := []record.Record{
		record.New(record.F("name", record.String("s")), record.F("v", record.String("x"))),
		record.New(record.F("name", record.String("n")), record.F("v", record.Number(3))),
		record.New(record.F("name", record.String("m"))),
		record.New(record.F("name", record.String("b")), record.F("v", record.Bool(true))),
		record.New(record.F("name", record.String("d")), record.F("v", record.MustDate("2024-01-01"))),
		record.New(record.F("name", record.String("o")), record.F("v", record.Object{"k": record.Number(1)})),
	}

	got := Sort(records, query.Sort{Field: "v"})
	assert.Equal(t, []string{"m", "o", "b", "n", "d", "s"}, testutil.Names(got))
}

func TestSort_Locale(t *testing.T) {
	records := named("\u00f6rn", "zebra", "apa")

	got := Sort(records, query.Sort{Field: "name"})
	assert.Equal(t, []string{"apa", "\u00f6rn", "zebra"}, testutil.Names(got))

	got = Sort(records, query.Sort{Field: "name"}, WithLocale(language.Swedish))
	assert.Equal(t, []string{"apa", "zebra", "\u00f6rn"}, testutil.Names(got))
}
