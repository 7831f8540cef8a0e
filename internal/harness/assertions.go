package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/facetview/internal/engine"
	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// metricTolerance absorbs float noise in unrounded metrics.
const metricTolerance = 1e-9

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Type     string // Expectation that failed, e.g. "order" or "totals.rate"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// check inspects a successful pipeline result.
type check func(*engine.Result) *AssertionError

// checks returns the checks for every expectation that is set.
func checks(e Expectation) []check {
	var out []check
	if e.Count != nil {
		out = append(out, func(r *engine.Result) *AssertionError { return assertCount(r, *e.Count) })
	}
	if e.Order != nil {
		keyField := e.KeyField
		if keyField == "" {
			keyField = "name"
		}
		out = append(out, func(r *engine.Result) *AssertionError { return assertOrder(r, keyField, e.Order) })
	}
	if e.Groups != nil {
		out = append(out, func(r *engine.Result) *AssertionError { return assertGroups(r, e.Groups) })
	}
	for _, name := range sortedKeys(e.Totals) {
		want := e.Totals[name]
		out = append(out, func(r *engine.Result) *AssertionError {
			return assertMetric("totals."+name, r.Totals, name, want)
		})
	}
	for _, key := range sortedKeys(e.GroupMetrics) {
		metrics := e.GroupMetrics[key]
		for _, name := range sortedKeys(metrics) {
			want := metrics[name]
			out = append(out, func(r *engine.Result) *AssertionError {
				g, ok := engine.FindGroup(r.Groups, key)
				if !ok {
					return &AssertionError{
						Type:     fmt.Sprintf("group_metrics[%s]", key),
						Expected: "group to exist",
						Actual:   fmt.Sprintf("groups %v", groupKeys(r.Groups)),
					}
				}
				return assertMetric(fmt.Sprintf("group_metrics[%s].%s", key, name), g.Metrics, name, want)
			})
		}
	}
	return out
}

func assertCount(r *engine.Result, want int) *AssertionError {
	if r.Matched == want {
		return nil
	}
	return &AssertionError{
		Type:     "count",
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(r.Matched),
	}
}

// assertOrder compares the returned records, identified by keyField,
// against the exact expected sequence.
func assertOrder(r *engine.Result, keyField string, want []string) *AssertionError {
	got := make([]string, len(r.Records))
	for i, rec := range r.Records {
		if v, ok := rec.Get(keyField); ok {
			got[i] = record.Text(v)
		}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     "order",
		Expected: formatList(want),
		Actual:   formatList(got),
	}
}

func assertGroups(r *engine.Result, want []string) *AssertionError {
	got := groupKeys(r.Groups)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     "groups",
		Expected: formatList(want),
		Actual:   formatList(got),
	}
}

// assertMetric checks one named metric. A nil want expects the undefined
// sentinel.
func assertMetric(label string, metrics map[string]engine.Metric, name string, want *float64) *AssertionError {
	got, ok := metrics[name]
	if !ok {
		return &AssertionError{Type: label, Expected: formatWant(want), Actual: "no such aggregate"}
	}
	switch {
	case want == nil && !got.Defined:
		return nil
	case want != nil && got.Defined && math.Abs(got.Value-*want) <= metricTolerance:
		return nil
	}
	return &AssertionError{Type: label, Expected: formatWant(want), Actual: got.String()}
}

// assertError checks that err carries the expected query error code.
func assertError(err error, code string) *AssertionError {
	if query.HasCode(err, query.ErrorCode(code)) {
		return nil
	}
	var codes []string
	for _, qe := range query.Errors(err) {
		codes = append(codes, string(qe.Code))
	}
	actual := err.Error()
	if len(codes) > 0 {
		actual = strings.Join(codes, ", ")
	}
	return &AssertionError{Type: "error", Expected: code, Actual: actual}
}

func groupKeys(groups []engine.Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}

func formatWant(want *float64) string {
	if want == nil {
		return "n/a"
	}
	return record.Text(record.Number(*want))
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
