package testutil

import (
	"github.com/roach88/facetview/internal/record"
)

// ScoreSchema describes the {name, score} records used by the filter and
// sort scenarios.
func ScoreSchema() *record.Schema {
	return record.MustSchema(
		record.Field{Name: "name", Type: record.TypeString},
		record.Field{Name: "score", Type: record.TypeNumber},
	)
}

// ScoreRecords returns [{B,10}, {A,20}, {C,10}].
func ScoreRecords() []record.Record {
	return []record.Record{
		record.New(record.F("name", record.String("B")), record.F("score", record.Number(10))),
		record.New(record.F("name", record.String("A")), record.F("score", record.Number(20))),
		record.New(record.F("name", record.String("C")), record.F("score", record.Number(10))),
	}
}

// LeadStages are the allowed values of the lead "stage" enum.
var LeadStages = []string{"new", "qualified", "won", "lost"}

// LeadSchema describes Leads.
func LeadSchema() *record.Schema {
	return record.MustSchema(
		record.Field{Name: "name", Type: record.TypeString},
		record.Field{Name: "stage", Type: record.TypeEnum, Values: LeadStages},
		record.Field{Name: "region", Type: record.TypeString},
		record.Field{Name: "score", Type: record.TypeNumber},
		record.Field{Name: "wins", Type: record.TypeNumber},
		record.Field{Name: "total", Type: record.TypeNumber},
		record.Field{Name: "hot", Type: record.TypeBool},
		record.Field{Name: "created", Type: record.TypeDate},
		record.Field{Name: "owner.name", Type: record.TypeString},
	)
}

// Leads returns a small heterogeneous sales pipeline. Delta has no region,
// Foxtrot has no score and only Acme and Beta have an owner.
//
//	name           stage      region  score  wins  total  hot    created
//	Acme Corp      new        west    40     1     4      true   2024-01-05
//	Beta LLC       qualified  east    75     3     6      false  2024-02-10
//	Cobalt Inc     new        west    55     0     5      false  2024-01-20
//	delta co       won        -       90     5     5      true   2024-03-01
//	Echo Partners  qualified  west    75     2     8      false  2024-02-28
//	Foxtrot        won        east    -      4     4      true   2024-03-15
//	Gamma Labs     lost       east    20     0     3      false  2024-01-11
func Leads() []record.Record {
	return []record.Record{
		lead("Acme Corp", "new", "west", record.Number(40), 1, 4, true, "2024-01-05",
			record.F("owner", record.Object{"name": record.String("Dana")})),
		lead("Beta LLC", "qualified", "east", record.Number(75), 3, 6, false, "2024-02-10",
			record.F("owner", record.Object{"name": record.String("Lee")})),
		lead("Cobalt Inc", "new", "west", record.Number(55), 0, 5, false, "2024-01-20"),
		lead("delta co", "won", "", record.Number(90), 5, 5, true, "2024-03-01"),
		lead("Echo Partners", "qualified", "west", record.Number(75), 2, 8, false, "2024-02-28"),
		lead("Foxtrot", "won", "east", nil, 4, 4, true, "2024-03-15"),
		lead("Gamma Labs", "lost", "east", record.Number(20), 0, 3, false, "2024-01-11"),
	}
}

func lead(name, stage, region string, score record.Value, wins, total float64, hot bool, created string, extra ...record.Pair) record.Record {
	pairs := []record.Pair{
		record.F("name", record.String(name)),
		record.F("stage", record.String(stage)),
		record.F("wins", record.Number(wins)),
		record.F("total", record.Number(total)),
		record.F("hot", record.Bool(hot)),
		record.F("created", record.MustDate(created)),
	}
	if region != "" {
		pairs = append(pairs, record.F("region", record.String(region)))
	}
	if score != nil {
		pairs = append(pairs, record.F("score", score))
	}
	return record.New(append(pairs, extra...)...)
}

// Names returns the "name" field of each record, for order assertions.
func Names(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		if v, ok := r.Get("name"); ok {
			out[i] = record.Text(v)
		}
	}
	return out
}
