// Package harness runs YAML scenarios against the query pipeline.
//
// A scenario carries its own schema, records and query, plus the outcome it
// expects: record order, group keys, metric values, the match count, or a
// validation error code. Run executes the scenario through engine.Engine
// with a fixed dataset version so results are reproducible, and reports
// every failed expectation rather than stopping at the first.
//
// RunWithGolden additionally snapshots the result as canonical JSON and
// compares it against testdata/golden/{name}.golden. Dataset versions and
// query hashes are left out of snapshots so goldens survive query-encoding
// changes. To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
