package engine

import (
	"math"

	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// Metric is the result of one aggregate.
//
// Defined is false when the aggregate has no meaningful value: the average
// or min/max of no values, or a rate whose denominator sums to zero. An
// undefined Metric always has Value 0, encodes as JSON null, and should be
// shown as "insufficient data" rather than plotted as zero.
type Metric struct {
	Value   float64
	Defined bool
}

// Undefined is the sentinel Metric.
var Undefined = Metric{}

// NewMetric wraps a computed value. NaN and infinities become Undefined.
func NewMetric(v float64) Metric {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Metric{Value: v, Defined: true}
}

// MarshalJSON encodes the value canonically, or null when undefined.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return []byte("null"), nil
	}
	return record.MarshalCanonical(record.Number(m.Value))
}

// String renders the metric for text output.
func (m Metric) String() string {
	if !m.Defined {
		return "n/a"
	}
	return record.Text(record.Number(m.Value))
}

// accumulator collects the running state for one aggregate.
type accumulator struct {
	spec     query.Aggregate
	sum      float64
	n        int
	min, max float64
	num, den float64
}

func (a *accumulator) add(r record.Record) {
	switch a.spec.Kind {
	case query.AggCount:
		if a.spec.Field == "" {
			a.n++
			return
		}
		if _, ok := r.Get(a.spec.Field); ok {
			a.n++
		}

	case query.AggSum, query.AggAverage, query.AggMin, query.AggMax:
		x, ok := number(r, a.spec.Field)
		if !ok {
			return
		}
		if a.n == 0 || x < a.min {
			a.min = x
		}
		if a.n == 0 || x > a.max {
			a.max = x
		}
		a.sum += x
		a.n++

	case query.AggRate:
		if x, ok := number(r, a.spec.Numerator); ok {
			a.num += x
		}
		if x, ok := number(r, a.spec.Denominator); ok {
			a.den += x
		}
	}
}

func (a *accumulator) result() Metric {
	var m Metric
	switch a.spec.Kind {
	case query.AggCount:
		m = NewMetric(float64(a.n))
	case query.AggSum:
		m = NewMetric(a.sum)
	case query.AggAverage:
		if a.n == 0 {
			return Undefined
		}
		m = NewMetric(a.sum / float64(a.n))
	case query.AggMin:
		if a.n == 0 {
			return Undefined
		}
		m = NewMetric(a.min)
	case query.AggMax:
		if a.n == 0 {
			return Undefined
		}
		m = NewMetric(a.max)
	case query.AggRate:
		if a.den == 0 {
			return Undefined
		}
		m = NewMetric(a.num / a.den * 100)
	default:
		return Undefined
	}
	if digits, ok := a.spec.Digits(); ok && m.Defined {
		m = NewMetric(round(m.Value, digits))
	}
	return m
}

func number(r record.Record, field string) (float64, bool) {
	v, ok := r.Get(field)
	if !ok {
		return 0, false
	}
	n, ok := v.(record.Number)
	return float64(n), ok
}

// round rounds half away from zero to the given number of decimals. Values
// too large to scale are returned unchanged.
func round(v float64, digits int) float64 {
	scale := math.Pow10(digits)
	scaled := v * scale
	if math.IsInf(scaled, 0) {
		return v
	}
	r := math.Round(scaled) / scale
	if r == 0 {
		return 0
	}
	return r
}

// Aggregate computes every spec over records in a single pass and returns
// the results by aggregate name. Records where a field is missing or not a
// number are skipped by that aggregate. It never returns NaN or Inf: see
// Metric. An empty specs list returns nil.
func Aggregate(records []record.Record, specs []query.Aggregate) map[string]Metric {
	if len(specs) == 0 {
		return nil
	}
	accs := make([]accumulator, len(specs))
	for i, s := range specs {
		accs[i].spec = s
	}
	for _, r := range records {
		for i := range accs {
			accs[i].add(r)
		}
	}

	out := make(map[string]Metric, len(specs))
	for i := range accs {
		out[accs[i].spec.Name] = accs[i].result()
	}
	return out
}
