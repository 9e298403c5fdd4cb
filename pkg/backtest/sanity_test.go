package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/brendanplayford/tsaw-go/pkg/model"
)

func TestBinIndex(t *testing.T) {
	tests := []struct {
		p    float64
		want int
	}{
		{0, 0},
		{0.05, 0},
		{0.1, 0},   // right-closed: 0.1 belongs to (0.0, 0.1]
		{0.11, 1},
		{0.8, 7},   // (0.7, 0.8]
		{0.80001, 8},
		{1, 9},
	}
	for _, tt := range tests {
		if got := binIndex(tt.p); got != tt.want {
			t.Errorf("binIndex(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestMaxDrawdown(t *testing.T) {
	d := date(2025, time.November, 2)
	var results []Result
	for i, pnl := range []float64{0.4, -0.2, 0.1} {
		results = append(results, Result{Date: d.AddDate(0, 0, 7*i), PnL: pnl})
	}
	// Peak 0.4 after trade one, trough 0.2 after trade two.
	if got := maxDrawdown(results); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("maxDrawdown = %v, want 0.2", got)
	}

	// Date order matters: feed the same trades shuffled.
	shuffled := []Result{results[2], results[0], results[1]}
	if got := maxDrawdown(shuffled); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("maxDrawdown(shuffled) = %v, want 0.2", got)
	}

	rising := []Result{
		{Date: d, PnL: 0.1},
		{Date: d.AddDate(0, 0, 7), PnL: 0.2},
	}
	if got := maxDrawdown(rising); got != 0 {
		t.Errorf("maxDrawdown(rising) = %v, want 0", got)
	}

	// Cumulative curve 0.4, -0.2, 0.1: peak 0.4, trough -0.2.
	var swing []Result
	for i, pnl := range []float64{0.4, -0.6, 0.3} {
		swing = append(swing, Result{Date: d.AddDate(0, 0, 7*i), PnL: pnl})
	}
	if got := maxDrawdown(swing); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("maxDrawdown(swing) = %v, want 0.6", got)
	}
}

func TestChecksCatchBrokenFormulas(t *testing.T) {
	d := date(2025, time.November, 30)
	good := NewResult("KXTSAW-25DEC07-A2.5", d, model.SideYes, 0.7, 0.4, 1)

	rep := Analyze([]Result{good})
	if !rep.Passed() {
		t.Fatalf("clean result failed checks: %+v", rep.Checks)
	}

	broken := good
	broken.PnL += 0.01
	rep = Analyze([]Result{broken})
	if rep.Passed() {
		t.Error("tampered pnl passed checks")
	}
}

func TestChecksCatchDuplicates(t *testing.T) {
	d := date(2025, time.November, 30)
	r := NewResult("KXTSAW-25DEC07-A2.5", d, model.SideYes, 0.7, 0.4, 1)

	rep := Analyze([]Result{r, r})
	if rep.Passed() {
		t.Error("duplicate grade passed checks")
	}
	for _, c := range rep.Checks {
		if c.Name == "duplicates" && c.Passed {
			t.Error("duplicates check passed on duplicate rows")
		}
	}
}

func TestChecksCatchOutOfBounds(t *testing.T) {
	d := date(2025, time.November, 30)
	r := NewResult("KXTSAW-25DEC07-A2.5", d, model.SideYes, 0.7, 0.4, 1)
	r.Prob = 1.2

	rep := Analyze([]Result{r})
	for _, c := range rep.Checks {
		if c.Name == "bounds" && c.Passed {
			t.Error("bounds check passed on prob > 1")
		}
	}
}

func TestAnalyzeMetrics(t *testing.T) {
	d := date(2025, time.November, 2)
	results := []Result{
		NewResult("KXTSAW-25NOV09-A2.3", d, model.SideYes, 0.8, 0.4, 1),
		NewResult("KXTSAW-25NOV16-A2.4", d.AddDate(0, 0, 7), model.SideYes, 0.8, 0.5, 1),
		NewResult("KXTSAW-25NOV23-A2.5", d.AddDate(0, 0, 14), model.SideNo, 0.3, 0.6, 0),
	}

	rep := Analyze(results)
	m := rep.Metrics

	if m.Trades != 3 {
		t.Errorf("trades = %d, want 3", m.Trades)
	}
	// pnls: 0.6, 0.5, -0.4
	if math.Abs(m.TotalPnL-0.7) > 1e-12 {
		t.Errorf("total pnl = %v, want 0.7", m.TotalPnL)
	}
	if math.Abs(m.HitRate-2.0/3) > 1e-12 {
		t.Errorf("hit rate = %v, want 2/3", m.HitRate)
	}
	if math.IsNaN(m.Sharpe) {
		t.Error("sharpe should be defined for varying pnl")
	}

	// Both 0.8 probabilities share bin (0.7, 0.8] and both hit.
	bin := rep.Bins[7]
	if bin.Trades != 2 || bin.HitRate != 1 {
		t.Errorf("bin 7 = %+v, want 2 trades all hits", bin)
	}
	if math.Abs(bin.Gap-0.2) > 1e-12 {
		t.Errorf("bin 7 gap = %v, want 0.2", bin.Gap)
	}
	// pnls in bin 7: 0.6 and 0.5
	if math.Abs(bin.MeanPnL-0.55) > 1e-12 {
		t.Errorf("bin 7 mean pnl = %v, want 0.55", bin.MeanPnL)
	}

	// Edges: 0.4 and 0.3 positive, -0.1 non-positive.
	if m.EdgePositive.Trades != 2 || m.EdgePositive.HitRate != 1 {
		t.Errorf("positive-edge split = %+v, want 2 trades all hits", m.EdgePositive)
	}
	if math.Abs(m.EdgePositive.MeanPnL-0.55) > 1e-12 {
		t.Errorf("positive-edge mean pnl = %v, want 0.55", m.EdgePositive.MeanPnL)
	}
	if m.EdgeNonPositive.Trades != 1 || m.EdgeNonPositive.HitRate != 0 {
		t.Errorf("non-positive-edge split = %+v, want 1 losing trade", m.EdgeNonPositive)
	}
	if math.Abs(m.EdgeNonPositive.MeanPnL-(-0.4)) > 1e-12 {
		t.Errorf("non-positive-edge mean pnl = %v, want -0.4", m.EdgeNonPositive.MeanPnL)
	}

	if m.PnLCILow > m.PnLCIHigh {
		t.Errorf("CI inverted: [%v, %v]", m.PnLCILow, m.PnLCIHigh)
	}

	if len(rep.Sides) != 2 {
		t.Fatalf("sides = %+v, want yes and no", rep.Sides)
	}
	if rep.Sides[0].Side != model.SideYes || rep.Sides[0].Trades != 2 || rep.Sides[0].Wins != 2 {
		t.Errorf("yes summary = %+v", rep.Sides[0])
	}
}

func TestAnalyzeFlatPnLSharpeNaN(t *testing.T) {
	d := date(2025, time.November, 2)
	results := []Result{
		NewResult("KXTSAW-25NOV09-A2.3", d, model.SideYes, 0.8, 0.4, 1),
		NewResult("KXTSAW-25NOV16-A2.4", d.AddDate(0, 0, 7), model.SideYes, 0.7, 0.4, 1),
	}
	m := Analyze(results).Metrics
	if !math.IsNaN(m.Sharpe) {
		t.Errorf("sharpe = %v, want NaN for zero-variance pnl", m.Sharpe)
	}
}

func TestBootstrapDeterministic(t *testing.T) {
	pnls := []float64{0.6, 0.5, -0.4, 0.1, -0.2}

	lo1, hi1 := bootstrapMeanCI(pnls)
	lo2, hi2 := bootstrapMeanCI(pnls)
	if lo1 != lo2 || hi1 != hi2 {
		t.Errorf("bootstrap not deterministic: [%v, %v] vs [%v, %v]", lo1, hi1, lo2, hi2)
	}
	if lo1 > hi1 {
		t.Errorf("CI inverted: [%v, %v]", lo1, hi1)
	}
}

func TestEdgeSplits(t *testing.T) {
	// Zero edge lands in the non-positive bucket.
	results := []Result{
		{Edge: 0.2, Outcome: 1, PnL: 0.5},
		{Edge: 0, Outcome: 1, PnL: 0.3},
		{Edge: -0.1, Outcome: 0, PnL: -0.7},
	}
	pos, nonPos := edgeSplits(results)
	if pos.Trades != 1 || pos.HitRate != 1 || math.Abs(pos.MeanPnL-0.5) > 1e-12 {
		t.Errorf("positive split = %+v", pos)
	}
	if nonPos.Trades != 2 || nonPos.HitRate != 0.5 || math.Abs(nonPos.MeanPnL-(-0.2)) > 1e-12 {
		t.Errorf("non-positive split = %+v", nonPos)
	}

	pos, nonPos = edgeSplits(nil)
	if pos.Trades != 0 || !math.IsNaN(pos.HitRate) || !math.IsNaN(pos.MeanPnL) {
		t.Errorf("empty positive split = %+v, want NaN means", pos)
	}
	if nonPos.Trades != 0 || !math.IsNaN(nonPos.HitRate) {
		t.Errorf("empty non-positive split = %+v, want NaN means", nonPos)
	}
}

func TestECEWeighting(t *testing.T) {
	bins := []CalibrationBin{
		{Trades: 3, Gap: 0.1},
		{Trades: 1, Gap: -0.3},
	}
	// (3*0.1 + 1*0.3) / 4 = 0.15
	if got := expectedCalibrationError(bins, 4); math.Abs(got-0.15) > 1e-12 {
		t.Errorf("ECE = %v, want 0.15", got)
	}
	if got := expectedCalibrationError(nil, 0); got != 0 {
		t.Errorf("ECE of empty table = %v, want 0", got)
	}
}
