// Package query defines the criteria for one facetview pipeline run:
// filter clauses, free-text search, sort, grouping and aggregates.
//
// Clauses are checked against a record.Schema when they are built, so an
// operator that cannot apply to a field's type (contains on a number,
// greaterThan on a string) fails before any record is filtered:
//
//	c, err := query.NewClause(schema, "score", query.OpGreaterThan, record.Number(10))
//	if query.IsInvalidOperator(err) {
//	    // reject the control that produced it
//	}
//
// Validate checks a whole Query at once and reports every problem, joined.
//
// The CLI, the CUE view compiler and the scenario harness all build queries
// through ParseClause, ParseSort and ParseAggregate so the expression syntax
// is identical everywhere:
//
//	score > 9
//	name ~ acme
//	stage in new|qualified
//	created between 2024-01-01..2024-03-31
//	conversion=rate(wins,total,1)
package query
