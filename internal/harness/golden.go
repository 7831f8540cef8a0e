package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/facetview/internal/engine"
	"github.com/roach88/facetview/internal/record"
)

// Snapshot renders a pipeline result as canonical JSON for golden
// comparison. Version and query hash are omitted; groups carry their key,
// count and metrics rather than repeating member records.
func Snapshot(name string, res *engine.Result) ([]byte, error) {
	records := make(record.Array, len(res.Records))
	for i, r := range res.Records {
		records[i] = record.Object(r)
	}

	snap := record.Object{
		"scenario": record.String(name),
		"total":    record.Number(float64(res.Total)),
		"matched":  record.Number(float64(res.Matched)),
		"records":  records,
	}
	if res.Groups != nil {
		groups := make(record.Array, len(res.Groups))
		for i, g := range res.Groups {
			obj := record.Object{
				"key":   record.String(g.Key),
				"count": record.Number(float64(g.Count())),
			}
			if g.Missing {
				obj["missing"] = record.Bool(true)
			}
			if g.Metrics != nil {
				obj["metrics"] = metricsObject(g.Metrics)
			}
			groups[i] = obj
		}
		snap["groups"] = groups
	}
	if res.Totals != nil {
		snap["totals"] = metricsObject(res.Totals)
	}

	data, err := record.MarshalCanonical(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	return append(data, '\n'), nil
}

func metricsObject(metrics map[string]engine.Metric) record.Object {
	obj := make(record.Object, len(metrics))
	for name, m := range metrics {
		if m.Defined {
			obj[name] = record.Number(m.Value)
		} else {
			obj[name] = record.Null{}
		}
	}
	return obj
}

// RunWithGolden executes a scenario and compares its result against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run or its query was rejected.
// Expectation failures are returned in the Result; a snapshot mismatch
// fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if result.Output == nil {
		return result, fmt.Errorf("scenario %s produced no output: %v", scenario.Name, result.QueryError)
	}

	if err := AssertGolden(t, scenario.Name, result.Output); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares an existing pipeline result against a golden file
// without re-running anything.
func AssertGolden(t *testing.T, name string, res *engine.Result) error {
	t.Helper()

	data, err := Snapshot(name, res)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}

// GoldenPath returns the golden file for a scenario inside dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CompareGolden reports whether the snapshot of res matches the golden file
// in dir. A missing golden file is returned as an error wrapping
// os.ErrNotExist so callers can treat it as "nothing to compare".
func CompareGolden(dir, name string, res *engine.Result) (bool, error) {
	want, err := os.ReadFile(GoldenPath(dir, name))
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(name, res)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

// UpdateGolden writes the snapshot of res as the golden file in dir,
// creating dir if needed.
func UpdateGolden(dir, name string, res *engine.Result) error {
	data, err := Snapshot(name, res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
