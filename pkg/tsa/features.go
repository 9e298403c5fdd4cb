package tsa

import (
	"math"
	"time"
)

// DefaultCutoff discards early sparse data that would otherwise corrupt the
// moving averages.
var DefaultCutoff = time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC)

const movingAvgWindow = 7

// FeatureRow holds the derived features for one calendar day. Fields that
// cannot be computed (short history, failed year-ago join) are NaN.
type FeatureRow struct {
	Date       time.Time
	Passengers float64
	DayOfWeek  time.Weekday

	// PreviousYear is the count on the same ISO weekday one year earlier.
	PreviousYear float64

	MovingAvg         float64 // trailing 7-day average of Passengers
	PrevYearMovingAvg float64 // trailing 7-day average of PreviousYear

	DayTrend  float64 // Passengers / PreviousYear
	WeekTrend float64 // MovingAvg / PrevYearMovingAvg

	LaggedDayTrend  float64 // DayTrend shifted back one day
	LaggedWeekTrend float64 // WeekTrend shifted back by the lag anchor

	// RowPrediction is the per-row forecast used to grow the historical
	// error distribution: PrevYearMovingAvg * (0.8*LaggedWeekTrend +
	// 0.2*LaggedDayTrend).
	RowPrediction float64
}

// Options control feature construction.
type Options struct {
	// Cutoff drops rows on or before this date. Zero means DefaultCutoff.
	Cutoff time.Time

	// LagDays shifts the week trend back to where it stood when the current
	// forecasting horizon opened. When zero it is derived as the
	// days-until-next-Sunday of LagAnchor, or of the newest row when
	// LagAnchor is also zero. Making the anchor explicit keeps historical
	// reconstructions independent of when the build happens to run.
	LagDays   int
	LagAnchor time.Time
}

// FeatureTable is an immutable, date-indexed view over the derived rows.
// It is rebuilt from the raw series on every pipeline run, never patched.
type FeatureTable struct {
	rows    []FeatureRow
	index   map[time.Time]int
	lagDays int
}

// BuildFeatures derives the feature table from raw daily counts. The
// year-ago reference for each row is located by ISO year/week/weekday; rows
// whose join fails keep NaN trend fields and drop out of downstream
// computations.
func BuildFeatures(counts []DailyCount, opts Options) (*FeatureTable, error) {
	if len(counts) == 0 {
		return nil, ErrDataUnavailable
	}

	cutoff := opts.Cutoff
	if cutoff.IsZero() {
		cutoff = DefaultCutoff
	}

	byDate := make(map[time.Time]float64, len(counts))
	for _, c := range counts {
		byDate[DateOnly(c.Date)] = c.Passengers
	}

	rows := make([]FeatureRow, 0, len(counts))
	for _, c := range counts {
		date := DateOnly(c.Date)
		if !date.After(cutoff) {
			continue
		}
		row := FeatureRow{
			Date:              date,
			Passengers:        c.Passengers,
			DayOfWeek:         date.Weekday(),
			PreviousYear:      math.NaN(),
			MovingAvg:         math.NaN(),
			PrevYearMovingAvg: math.NaN(),
			DayTrend:          math.NaN(),
			WeekTrend:         math.NaN(),
			LaggedDayTrend:    math.NaN(),
			LaggedWeekTrend:   math.NaN(),
			RowPrediction:     math.NaN(),
		}
		if prev, ok := SameWeekdayLastYear(date); ok {
			if n, ok := byDate[prev]; ok {
				row.PreviousYear = n
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrDataUnavailable
	}

	for i := range rows {
		if i < movingAvgWindow-1 {
			continue
		}
		rows[i].MovingAvg = trailingMean(rows[i-movingAvgWindow+1:i+1], func(r FeatureRow) float64 { return r.Passengers })
		rows[i].PrevYearMovingAvg = trailingMean(rows[i-movingAvgWindow+1:i+1], func(r FeatureRow) float64 { return r.PreviousYear })
	}

	for i := range rows {
		rows[i].DayTrend = rows[i].Passengers / rows[i].PreviousYear
		rows[i].WeekTrend = rows[i].MovingAvg / rows[i].PrevYearMovingAvg
	}

	lag := resolveLagDays(opts, rows)
	for i := range rows {
		if i >= 1 {
			rows[i].LaggedDayTrend = rows[i-1].DayTrend
		}
		if i >= lag {
			rows[i].LaggedWeekTrend = rows[i-lag].WeekTrend
		}
		rows[i].RowPrediction = rows[i].PrevYearMovingAvg *
			(0.8*rows[i].LaggedWeekTrend + 0.2*rows[i].LaggedDayTrend)
	}

	index := make(map[time.Time]int, len(rows))
	for i, r := range rows {
		index[r.Date] = i
	}
	return &FeatureTable{rows: rows, index: index, lagDays: lag}, nil
}

func resolveLagDays(opts Options, rows []FeatureRow) int {
	if opts.LagDays > 0 {
		return opts.LagDays
	}
	anchor := opts.LagAnchor
	if anchor.IsZero() {
		anchor = rows[len(rows)-1].Date
	}
	return DaysUntilNextSunday(anchor)
}

func trailingMean(window []FeatureRow, value func(FeatureRow) float64) float64 {
	var sum float64
	for _, r := range window {
		v := value(r)
		if math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(len(window))
}

// Rows returns the derived rows in ascending date order.
func (t *FeatureTable) Rows() []FeatureRow {
	return t.rows
}

// LagDays reports the week-trend lag the table was built with.
func (t *FeatureTable) LagDays() int {
	return t.lagDays
}

// At returns the row for an exact date.
func (t *FeatureTable) At(date time.Time) (FeatureRow, bool) {
	i, ok := t.index[DateOnly(date)]
	if !ok {
		return FeatureRow{}, false
	}
	return t.rows[i], true
}

// Latest returns the most recent row dated on or before asOf.
func (t *FeatureTable) Latest(asOf time.Time) (FeatureRow, bool) {
	asOf = DateOnly(asOf)
	for i := len(t.rows) - 1; i >= 0; i-- {
		if !t.rows[i].Date.After(asOf) {
			return t.rows[i], true
		}
	}
	return FeatureRow{}, false
}
