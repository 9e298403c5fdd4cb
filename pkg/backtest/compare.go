package backtest

import (
	"math"
	"sort"
)

// MetricDelta is the change in one metric between two runs.
type MetricDelta struct {
	Name     string
	Base     float64
	Current  float64
	Delta    float64
	DeltaPct float64 // NaN when the base is zero or non-finite
}

// CompareMetrics diffs two metric sets, ordered by name. Metrics present in
// only one set still appear, with the missing side as NaN.
func CompareMetrics(base, current Metrics) []MetricDelta {
	bm := base.Map()
	cm := current.Map()

	names := make(map[string]bool)
	for n := range bm {
		names[n] = true
	}
	for n := range cm {
		names[n] = true
	}

	var deltas []MetricDelta
	for n := range names {
		b, bok := bm[n]
		c, cok := cm[n]
		if !bok {
			b = math.NaN()
		}
		if !cok {
			c = math.NaN()
		}

		d := MetricDelta{Name: n, Base: b, Current: c, Delta: c - b}
		if b == 0 || math.IsNaN(b) || math.IsInf(b, 0) {
			d.DeltaPct = math.NaN()
		} else {
			d.DeltaPct = (c - b) / math.Abs(b) * 100
		}
		deltas = append(deltas, d)
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Name < deltas[j].Name })
	return deltas
}
