// Package engine implements the facetview pipeline.
//
// A run takes a Dataset and a query.Query and always executes the same
// phases in the same order:
//
//  1. Filter: keep records matching every clause and the free-text search
//  2. Sort: stable sort by one field (locale-aware, case-insensitive strings)
//  3. Group: partition by one field, keys in first-seen order
//  4. Aggregate: one pass per partition, plus totals over all matches
//
// Each phase is also exported as a standalone pure function (Filter, Sort,
// GroupBy, Aggregate). None of them mutate their inputs and none of them log.
//
// DETERMINISM:
//
// The same (records, query) pair always yields the same Result. Filtering
// never reorders. Sorting uses slices.SortStableFunc so ties keep input
// order. Missing fields never raise errors: they fail filter clauses, sort
// lowest and group under MissingKey. Aggregates that have no defined value
// (average of nothing, rate over a zero denominator) return an undefined
// Metric instead of NaN or Inf.
//
// MEMOIZATION:
//
// Engine wraps Run with a bounded LRU cache keyed on the dataset version and
// the canonical query hash. Datasets are treated as immutable: a changed
// collection must get a new version (NewDataset or ContentVersion).
package engine
