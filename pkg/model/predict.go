// Package model produces the single-week-ahead passenger forecast and turns
// it into empirical trade likelihoods against contract strikes.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

var (
	// ErrInsufficientHistory is returned when the target date has no usable
	// year-ago reference in the feature table.
	ErrInsufficientHistory = errors.New("model: no usable year-ago reference")

	// ErrInsufficientCalibrationData is returned when the historical error
	// table is empty and no likelihood can be estimated.
	ErrInsufficientCalibrationData = errors.New("model: empty historical error table")
)

// Trend weighting for the year-over-year adjustment. The 7-day trend
// dominates; the single-day trend contributes a small recency component.
const (
	weekTrendWeight = 0.8
	dayTrendWeight  = 0.2
)

// Prediction is a single-week-ahead forecast of the 7-day moving average.
// Immutable once computed.
type Prediction struct {
	TargetDate           time.Time `json:"target_date"`
	LastYearPassengers   float64   `json:"last_year_passengers"`
	YoYAdjustment        float64   `json:"yoy_adjustment"`
	Day1Trend            float64   `json:"day_1_trend"`
	Day7Trend            float64   `json:"day_7_trend"`
	DaysUntilTarget      int       `json:"days_until_target"`
	MostRecentSourceDate time.Time `json:"most_recent_source_date"`
	Value                float64   `json:"prediction"`
}

// Predict forecasts passenger volume for the next Sunday strictly after
// asOf. It reads only feature rows dated on or before asOf, so feeding it a
// point-in-time table reconstructs exactly what was knowable then. Pure:
// identical inputs produce identical output.
func Predict(asOf time.Time, table *tsa.FeatureTable) (Prediction, error) {
	asOf = tsa.DateOnly(asOf)
	target := tsa.NextSunday(asOf)

	ref, ok := tsa.SameWeekdayLastYear(target)
	if !ok {
		return Prediction{}, fmt.Errorf("%w: target %s has no ISO-aligned prior-year week",
			ErrInsufficientHistory, target.Format("2006-01-02"))
	}
	refRow, ok := table.At(ref)
	if !ok || math.IsNaN(refRow.MovingAvg) {
		return Prediction{}, fmt.Errorf("%w: no 7-day average at %s",
			ErrInsufficientHistory, ref.Format("2006-01-02"))
	}

	latest, ok := table.Latest(asOf)
	if !ok {
		return Prediction{}, fmt.Errorf("%w: no feature rows on or before %s",
			ErrInsufficientHistory, asOf.Format("2006-01-02"))
	}

	yoy := weekTrendWeight*latest.WeekTrend + dayTrendWeight*latest.DayTrend
	return Prediction{
		TargetDate:           target,
		LastYearPassengers:   refRow.MovingAvg,
		YoYAdjustment:        yoy,
		Day1Trend:            latest.DayTrend,
		Day7Trend:            latest.WeekTrend,
		DaysUntilTarget:      int(target.Sub(asOf).Hours() / 24),
		MostRecentSourceDate: latest.Date,
		Value:                refRow.MovingAvg * yoy,
	}, nil
}
