package backtest

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/brendanplayford/tsaw-go/pkg/model"
)

const (
	formulaTolerance = 1e-8
	calibrationBins  = 10

	bootstrapResamples = 2000
	bootstrapSeed      = 7
)

// Check is one structural validation over a results table.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// CalibrationBin aggregates trades whose forecast probability falls in
// (Low, High]; the lowest bin also includes zero.
type CalibrationBin struct {
	Low      float64
	High     float64
	Trades   int
	MeanProb float64
	HitRate  float64
	MeanPnL  float64
	Gap      float64 // HitRate - MeanProb
}

// SideSummary aggregates performance for one traded side.
type SideSummary struct {
	Side     model.Side
	Trades   int
	Wins     int
	TotalPnL float64
	MeanPnL  float64
}

// EdgeSplit aggregates trades sharing an edge sign. Means are NaN for an
// empty bucket.
type EdgeSplit struct {
	Trades  int
	HitRate float64
	MeanPnL float64
}

// Metrics are the headline numbers of a results table.
type Metrics struct {
	Trades      int
	TotalPnL    float64
	MeanPnL     float64
	HitRate     float64
	MeanBrier   float64
	MeanLogLoss float64
	MeanEdge    float64

	ECE         float64 // trade-weighted expected calibration error
	MaxDrawdown float64
	Sharpe      float64 // per-trade, population std; NaN when flat
	EdgePnLCorr float64

	// Performance split by claimed edge: positive edge should trade
	// better than non-positive if the model's advantage is real.
	EdgePositive    EdgeSplit
	EdgeNonPositive EdgeSplit

	PnLCILow  float64 // bootstrap 95% CI on mean pnl
	PnLCIHigh float64
}

// Map flattens metrics into named values for run-to-run comparison.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"trades":        float64(m.Trades),
		"total_pnl":     m.TotalPnL,
		"mean_pnl":      m.MeanPnL,
		"hit_rate":      m.HitRate,
		"mean_brier":    m.MeanBrier,
		"mean_logloss":  m.MeanLogLoss,
		"mean_edge":     m.MeanEdge,
		"ece":           m.ECE,
		"max_drawdown":  m.MaxDrawdown,
		"sharpe":        m.Sharpe,
		"edge_pnl_corr": m.EdgePnLCorr,

		"n_edge_positive":            float64(m.EdgePositive.Trades),
		"edge_positive_hit_rate":     m.EdgePositive.HitRate,
		"edge_positive_mean_pnl":     m.EdgePositive.MeanPnL,
		"n_edge_non_positive":        float64(m.EdgeNonPositive.Trades),
		"edge_non_positive_hit_rate": m.EdgeNonPositive.HitRate,
		"edge_non_positive_mean_pnl": m.EdgeNonPositive.MeanPnL,

		"pnl_ci_low":  m.PnLCILow,
		"pnl_ci_high": m.PnLCIHigh,
	}
}

// Report is a full sanity analysis of a results table.
type Report struct {
	Checks  []Check
	Metrics Metrics
	Bins    []CalibrationBin
	Sides   []SideSummary
}

// Passed reports whether every structural check passed.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Analyze runs all checks and computes metrics over results. Metric
// computation proceeds even when checks fail; the caller decides how loudly
// to complain.
func Analyze(results []Result) Report {
	rep := Report{Checks: RunChecks(results)}
	if len(results) == 0 {
		rep.Metrics.Sharpe = math.NaN()
		rep.Metrics.EdgePnLCorr = math.NaN()
		rep.Metrics.EdgePositive, rep.Metrics.EdgeNonPositive = edgeSplits(nil)
		return rep
	}

	var pnls, edges, briers, loglosses, probs []float64
	wins := 0
	for _, r := range results {
		pnls = append(pnls, r.PnL)
		edges = append(edges, r.Edge)
		briers = append(briers, r.Brier)
		loglosses = append(loglosses, r.LogLoss)
		probs = append(probs, r.Prob)
		wins += r.Outcome
	}

	m := &rep.Metrics
	m.Trades = len(results)
	m.TotalPnL = sum(pnls)
	m.MeanPnL = stat.Mean(pnls, nil)
	m.HitRate = float64(wins) / float64(len(results))
	m.MeanBrier = stat.Mean(briers, nil)
	m.MeanLogLoss = stat.Mean(loglosses, nil)
	m.MeanEdge = stat.Mean(edges, nil)

	rep.Bins = calibrationTable(results)
	m.ECE = expectedCalibrationError(rep.Bins, len(results))
	m.MaxDrawdown = maxDrawdown(results)

	std := stat.PopStdDev(pnls, nil)
	if std == 0 {
		m.Sharpe = math.NaN()
	} else {
		m.Sharpe = m.MeanPnL / std
	}

	if len(results) > 1 {
		m.EdgePnLCorr = stat.Correlation(edges, pnls, nil)
	} else {
		m.EdgePnLCorr = math.NaN()
	}

	m.EdgePositive, m.EdgeNonPositive = edgeSplits(results)

	m.PnLCILow, m.PnLCIHigh = bootstrapMeanCI(pnls)

	rep.Sides = sideSummaries(results)
	return rep
}

// RunChecks validates the structural integrity of a results table: value
// bounds, duplicate grades, and the derived-column formulas.
func RunChecks(results []Result) []Check {
	return []Check{
		checkBounds(results),
		checkDuplicates(results),
		checkFormulas(results),
	}
}

func checkBounds(results []Result) Check {
	for i, r := range results {
		switch {
		case r.Prob < 0 || r.Prob > 1 || math.IsNaN(r.Prob):
			return failed("bounds", "row %d: prob %v outside [0,1]", i, r.Prob)
		case r.FillPrice < 0 || r.FillPrice > 1 || math.IsNaN(r.FillPrice):
			return failed("bounds", "row %d: fill_price %v outside [0,1]", i, r.FillPrice)
		case r.ContractPrice < 0 || r.ContractPrice > 1 || math.IsNaN(r.ContractPrice):
			return failed("bounds", "row %d: contract_price %v outside [0,1]", i, r.ContractPrice)
		case r.Outcome != 0 && r.Outcome != 1:
			return failed("bounds", "row %d: outcome %d not binary", i, r.Outcome)
		case r.Side != model.SideYes && r.Side != model.SideNo:
			return failed("bounds", "row %d: side %q", i, r.Side)
		}
	}
	return passed("bounds")
}

func checkDuplicates(results []Result) Check {
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		key := r.Market + "_" + r.Date.Format("2006-01-02")
		if seen[key] {
			return failed("duplicates", "duplicate grade for %s on %s", r.Market, r.Date.Format("2006-01-02"))
		}
		seen[key] = true
	}
	return passed("duplicates")
}

func checkFormulas(results []Result) Check {
	for i, r := range results {
		want := NewResult(r.Market, r.Date, r.Side, r.Prob, r.FillPrice, r.Outcome)
		for _, f := range []struct {
			name      string
			got, want float64
		}{
			{"contract_price", r.ContractPrice, want.ContractPrice},
			{"pnl", r.PnL, want.PnL},
			{"brier", r.Brier, want.Brier},
			{"logloss", r.LogLoss, want.LogLoss},
			{"edge", r.Edge, want.Edge},
		} {
			if math.Abs(f.got-f.want) > formulaTolerance {
				return failed("formulas", "row %d: %s = %v, recomputed %v", i, f.name, f.got, f.want)
			}
		}
	}
	return passed("formulas")
}

func passed(name string) Check { return Check{Name: name, Passed: true} }

func failed(name, format string, args ...any) Check {
	return Check{Name: name, Passed: false, Detail: fmt.Sprintf(format, args...)}
}

// binIndex maps a probability to its right-closed decile, the lowest bin
// absorbing zero. The epsilon keeps boundary values like 0.8 in their own
// bin despite float representation.
func binIndex(p float64) int {
	idx := int(math.Ceil(p*calibrationBins-1e-12)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= calibrationBins {
		idx = calibrationBins - 1
	}
	return idx
}

func calibrationTable(results []Result) []CalibrationBin {
	bins := make([]CalibrationBin, calibrationBins)
	probSum := make([]float64, calibrationBins)
	pnlSum := make([]float64, calibrationBins)
	winSum := make([]int, calibrationBins)

	for i := range bins {
		bins[i].Low = float64(i) / calibrationBins
		bins[i].High = float64(i+1) / calibrationBins
	}

	for _, r := range results {
		idx := binIndex(r.Prob)
		bins[idx].Trades++
		probSum[idx] += r.Prob
		pnlSum[idx] += r.PnL
		winSum[idx] += r.Outcome
	}

	for i := range bins {
		if bins[i].Trades == 0 {
			continue
		}
		n := float64(bins[i].Trades)
		bins[i].MeanProb = probSum[i] / n
		bins[i].HitRate = float64(winSum[i]) / n
		bins[i].MeanPnL = pnlSum[i] / n
		bins[i].Gap = bins[i].HitRate - bins[i].MeanProb
	}
	return bins
}

func expectedCalibrationError(bins []CalibrationBin, total int) float64 {
	if total == 0 {
		return 0
	}
	var ece float64
	for _, b := range bins {
		if b.Trades == 0 {
			continue
		}
		ece += float64(b.Trades) / float64(total) * math.Abs(b.Gap)
	}
	return ece
}

// maxDrawdown walks cumulative pnl in date order (stable for same-day
// trades) and returns the deepest peak-to-trough drop. Zero for a
// monotonically rising curve.
func maxDrawdown(results []Result) float64 {
	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var cum, peak, dd float64
	for _, r := range ordered {
		cum += r.PnL
		if cum > peak {
			peak = cum
		}
		if d := peak - cum; d > dd {
			dd = d
		}
	}
	return dd
}

// bootstrapMeanCI resamples mean pnl with a fixed seed so reruns produce
// identical intervals.
func bootstrapMeanCI(pnls []float64) (low, high float64) {
	rng := rand.New(rand.NewSource(bootstrapSeed))
	means := make([]float64, bootstrapResamples)
	sample := make([]float64, len(pnls))

	for i := 0; i < bootstrapResamples; i++ {
		for j := range sample {
			sample[j] = pnls[rng.Intn(len(pnls))]
		}
		means[i] = stat.Mean(sample, nil)
	}

	sort.Float64s(means)
	low = stat.Quantile(0.025, stat.Empirical, means, nil)
	high = stat.Quantile(0.975, stat.Empirical, means, nil)
	return low, high
}

// edgeSplits partitions trades by the sign of their claimed edge. Trades
// with zero or negative edge carry no claimed advantage, so losses there
// say less about the model than losses on positive-edge trades.
func edgeSplits(results []Result) (pos, nonPos EdgeSplit) {
	var posWins, nonPosWins int
	var posPnL, nonPosPnL float64
	for _, r := range results {
		if r.Edge > 0 {
			pos.Trades++
			posWins += r.Outcome
			posPnL += r.PnL
		} else {
			nonPos.Trades++
			nonPosWins += r.Outcome
			nonPosPnL += r.PnL
		}
	}

	pos.HitRate, pos.MeanPnL = math.NaN(), math.NaN()
	if pos.Trades > 0 {
		pos.HitRate = float64(posWins) / float64(pos.Trades)
		pos.MeanPnL = posPnL / float64(pos.Trades)
	}
	nonPos.HitRate, nonPos.MeanPnL = math.NaN(), math.NaN()
	if nonPos.Trades > 0 {
		nonPos.HitRate = float64(nonPosWins) / float64(nonPos.Trades)
		nonPos.MeanPnL = nonPosPnL / float64(nonPos.Trades)
	}
	return pos, nonPos
}

func sideSummaries(results []Result) []SideSummary {
	byside := map[model.Side]*SideSummary{}
	for _, r := range results {
		s, ok := byside[r.Side]
		if !ok {
			s = &SideSummary{Side: r.Side}
			byside[r.Side] = s
		}
		s.Trades++
		s.Wins += r.Outcome
		s.TotalPnL += r.PnL
	}

	var out []SideSummary
	for _, side := range []model.Side{model.SideYes, model.SideNo} {
		if s, ok := byside[side]; ok {
			s.MeanPnL = s.TotalPnL / float64(s.Trades)
			out = append(out, *s)
		}
	}
	return out
}

func sum(vs []float64) float64 {
	var t float64
	for _, v := range vs {
		t += v
	}
	return t
}
