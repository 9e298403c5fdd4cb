package tsa

import (
	"errors"
	"math"
	"testing"
	"time"
)

// syntheticCounts produces a gapless daily series. Values follow a smooth
// year-over-year growth so trend ratios are predictable.
func syntheticCounts(start, end time.Time) []DailyCount {
	base := date(2021, time.January, 1)
	var counts []DailyCount
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days := d.Sub(base).Hours() / 24
		counts = append(counts, DailyCount{Date: d, Passengers: 2_000_000 + 100*days})
	}
	return counts
}

func TestBuildFeaturesMovingAverageWarmup(t *testing.T) {
	counts := syntheticCounts(date(2021, time.January, 1), date(2022, time.December, 31))
	table, err := BuildFeatures(counts, Options{LagAnchor: date(2022, time.December, 31)})
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	rows := table.Rows()
	if !rows[0].Date.Equal(date(2022, time.June, 2)) {
		t.Fatalf("first row %v, want cutoff+1 2022-06-02", rows[0].Date)
	}
	for i := 0; i < 6; i++ {
		if !math.IsNaN(rows[i].MovingAvg) {
			t.Errorf("row %d (%v): moving average defined inside warmup window", i, rows[i].Date)
		}
	}
	if math.IsNaN(rows[6].MovingAvg) {
		t.Errorf("row 6 (%v): moving average undefined after warmup", rows[6].Date)
	}
}

func TestBuildFeaturesYearAgoJoin(t *testing.T) {
	counts := syntheticCounts(date(2021, time.January, 1), date(2022, time.December, 31))
	table, err := BuildFeatures(counts, Options{LagAnchor: date(2022, time.December, 31)})
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	// 2022-11-15 is a Tuesday; its aligned 2021 date must be a Tuesday too.
	row, ok := table.At(date(2022, time.November, 15))
	if !ok {
		t.Fatal("missing feature row for 2022-11-15")
	}
	aligned, ok := SameWeekdayLastYear(row.Date)
	if !ok {
		t.Fatal("no aligned prior-year date for 2022-11-15")
	}
	if aligned.Weekday() != row.Date.Weekday() {
		t.Errorf("aligned date %v weekday mismatch", aligned)
	}
	days := aligned.Sub(date(2021, time.January, 1)).Hours() / 24
	want := 2_000_000 + 100*days
	if row.PreviousYear != want {
		t.Errorf("PreviousYear = %v, want %v", row.PreviousYear, want)
	}
	if math.IsNaN(row.DayTrend) || row.DayTrend <= 1 {
		t.Errorf("DayTrend = %v, want growth ratio above 1", row.DayTrend)
	}
}

func TestBuildFeaturesLagAnchorIsExplicit(t *testing.T) {
	counts := syntheticCounts(date(2021, time.January, 1), date(2022, time.December, 31))

	wednesday := date(2022, time.December, 28)
	monday := date(2022, time.December, 26)

	fromWednesday, err := BuildFeatures(counts, Options{LagAnchor: wednesday})
	if err != nil {
		t.Fatalf("BuildFeatures(wednesday anchor) error = %v", err)
	}
	fromMonday, err := BuildFeatures(counts, Options{LagAnchor: monday})
	if err != nil {
		t.Fatalf("BuildFeatures(monday anchor) error = %v", err)
	}

	if fromWednesday.LagDays() != 4 {
		t.Errorf("wednesday anchor lag = %d, want 4", fromWednesday.LagDays())
	}
	if fromMonday.LagDays() != 6 {
		t.Errorf("monday anchor lag = %d, want 6", fromMonday.LagDays())
	}

	// The same historical row must reflect its anchor, and only its anchor.
	probe := date(2022, time.December, 20)
	a, _ := fromWednesday.At(probe)
	b, _ := fromMonday.At(probe)
	if a.LaggedWeekTrend == b.LaggedWeekTrend {
		t.Error("lagged week trend identical across different anchors")
	}

	explicit, err := BuildFeatures(counts, Options{LagDays: 4})
	if err != nil {
		t.Fatalf("BuildFeatures(explicit lag) error = %v", err)
	}
	c, _ := explicit.At(probe)
	if c.LaggedWeekTrend != a.LaggedWeekTrend {
		t.Error("LagDays=4 disagrees with a Wednesday anchor")
	}
}

func TestBuildFeaturesPointInTime(t *testing.T) {
	counts := syntheticCounts(date(2021, time.January, 1), date(2022, time.December, 31))
	runDate := date(2022, time.November, 20)

	table, err := BuildFeatures(FilterThrough(counts, runDate), Options{LagAnchor: runDate})
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}
	rows := table.Rows()
	if last := rows[len(rows)-1].Date; last.After(runDate) {
		t.Errorf("feature table contains %v, after run date %v", last, runDate)
	}
	if _, ok := table.At(runDate.AddDate(0, 0, 1)); ok {
		t.Error("lookup past the run date succeeded")
	}
}

func TestBuildFeaturesErrors(t *testing.T) {
	if _, err := BuildFeatures(nil, Options{}); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("BuildFeatures(nil) error = %v, want ErrDataUnavailable", err)
	}

	// Everything inside the cutoff window.
	counts := syntheticCounts(date(2021, time.January, 1), date(2022, time.May, 1))
	if _, err := BuildFeatures(counts, Options{}); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("BuildFeatures(pre-cutoff only) error = %v, want ErrDataUnavailable", err)
	}
}

func TestFeatureTableLatest(t *testing.T) {
	counts := syntheticCounts(date(2021, time.January, 1), date(2022, time.December, 31))
	table, err := BuildFeatures(counts, Options{LagAnchor: date(2022, time.December, 31)})
	if err != nil {
		t.Fatalf("BuildFeatures() error = %v", err)
	}

	row, ok := table.Latest(date(2022, time.December, 15))
	if !ok || !row.Date.Equal(date(2022, time.December, 15)) {
		t.Errorf("Latest(exact) = %v, %v", row.Date, ok)
	}

	// asOf beyond the table clamps to the newest row, never past it.
	row, ok = table.Latest(date(2030, time.January, 1))
	if !ok || !row.Date.Equal(date(2022, time.December, 31)) {
		t.Errorf("Latest(beyond) = %v, %v", row.Date, ok)
	}

	if _, ok := table.Latest(date(2022, time.June, 1)); ok {
		t.Error("Latest before first row should report no match")
	}
}
