package backtest

import (
	"fmt"
	"math"
	"strings"
)

// RenderReport renders a sanity report as markdown.
func RenderReport(rep Report) string {
	var b strings.Builder

	b.WriteString("# Backtest Sanity Report\n\n")

	b.WriteString("## Checks\n\n")
	b.WriteString("| check | status | detail |\n|---|---|---|\n")
	for _, c := range rep.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", c.Name, status, c.Detail)
	}
	b.WriteString("\n")

	m := rep.Metrics
	b.WriteString("## Metrics\n\n")
	b.WriteString("| metric | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| trades | %d |\n", m.Trades)
	fmt.Fprintf(&b, "| total pnl | %s |\n", num(m.TotalPnL))
	fmt.Fprintf(&b, "| mean pnl | %s |\n", num(m.MeanPnL))
	fmt.Fprintf(&b, "| hit rate | %s |\n", num(m.HitRate))
	fmt.Fprintf(&b, "| mean brier | %s |\n", num(m.MeanBrier))
	fmt.Fprintf(&b, "| mean logloss | %s |\n", num(m.MeanLogLoss))
	fmt.Fprintf(&b, "| mean edge | %s |\n", num(m.MeanEdge))
	fmt.Fprintf(&b, "| ece | %s |\n", num(m.ECE))
	fmt.Fprintf(&b, "| max drawdown | %s |\n", num(m.MaxDrawdown))
	fmt.Fprintf(&b, "| sharpe | %s |\n", num(m.Sharpe))
	fmt.Fprintf(&b, "| edge/pnl correlation | %s |\n", num(m.EdgePnLCorr))
	fmt.Fprintf(&b, "| mean pnl 95%% CI | [%s, %s] |\n", num(m.PnLCILow), num(m.PnLCIHigh))
	b.WriteString("\n")

	b.WriteString("## Calibration\n\n")
	b.WriteString("| bin | trades | mean prob | hit rate | mean pnl | gap |\n|---|---|---|---|---|---|\n")
	for _, bin := range rep.Bins {
		if bin.Trades == 0 {
			continue
		}
		fmt.Fprintf(&b, "| (%.1f, %.1f] | %d | %s | %s | %s | %s |\n",
			bin.Low, bin.High, bin.Trades, num(bin.MeanProb), num(bin.HitRate), num(bin.MeanPnL), num(bin.Gap))
	}
	b.WriteString("\n")

	b.WriteString("## Edge\n\n")
	b.WriteString("| edge sign | trades | hit rate | mean pnl |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| positive | %d | %s | %s |\n",
		m.EdgePositive.Trades, num(m.EdgePositive.HitRate), num(m.EdgePositive.MeanPnL))
	fmt.Fprintf(&b, "| non-positive | %d | %s | %s |\n",
		m.EdgeNonPositive.Trades, num(m.EdgeNonPositive.HitRate), num(m.EdgeNonPositive.MeanPnL))
	b.WriteString("\n")

	if len(rep.Sides) > 0 {
		b.WriteString("## Sides\n\n")
		b.WriteString("| side | trades | wins | total pnl | mean pnl |\n|---|---|---|---|---|\n")
		for _, s := range rep.Sides {
			fmt.Fprintf(&b, "| %s | %d | %d | %s | %s |\n",
				s.Side, s.Trades, s.Wins, num(s.TotalPnL), num(s.MeanPnL))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderComparison renders a metric diff as markdown.
func RenderComparison(deltas []MetricDelta) string {
	var b strings.Builder

	b.WriteString("# Backtest Comparison\n\n")
	b.WriteString("| metric | base | current | delta | delta % |\n|---|---|---|---|---|\n")
	for _, d := range deltas {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			d.Name, num(d.Base), num(d.Current), num(d.Delta), num(d.DeltaPct))
	}
	b.WriteString("\n")
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
