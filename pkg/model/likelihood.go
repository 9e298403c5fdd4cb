package model

import (
	"math"
	"time"

	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

// Side of a traded contract.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// ErrorSample is one matured historical prediction with its realized
// outcome. The collection forms the empirical error distribution the
// likelihood estimates are drawn from.
type ErrorSample struct {
	AsOf         time.Time
	Predicted    float64
	Actual       float64
	PercentError float64 // Actual/Predicted - 1
}

// ErrorSamples extracts one sample per feature row whose per-row prediction
// has a matured 7-day moving average. Rows with an undefined prediction are
// excluded. The table grows monotonically as more weeks mature.
func ErrorSamples(table *tsa.FeatureTable) []ErrorSample {
	var samples []ErrorSample
	for _, row := range table.Rows() {
		if math.IsNaN(row.RowPrediction) || math.IsNaN(row.MovingAvg) {
			continue
		}
		samples = append(samples, ErrorSample{
			AsOf:         row.Date,
			Predicted:    row.RowPrediction,
			Actual:       row.MovingAvg,
			PercentError: row.MovingAvg/row.RowPrediction - 1,
		})
	}
	return samples
}

// LikelihoodOfYes estimates P(actual >= floorStrike) as the fraction of
// history where the model under-predicted by at least prediction/strike - 1.
func LikelihoodOfYes(prediction, floorStrike float64, samples []ErrorSample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrInsufficientCalibrationData
	}
	diff := prediction/floorStrike - 1
	n := 0
	for _, s := range samples {
		if s.PercentError < diff {
			n++
		}
	}
	return float64(n) / float64(len(samples)), nil
}

// LikelihoodOfNo estimates the chance the actual lands short of the strike
// when the prediction itself falls short. It counts errors strictly above
// the percent difference, so it is not the complement of LikelihoodOfYes:
// the two answer different conditional questions.
func LikelihoodOfNo(prediction, floorStrike float64, samples []ErrorSample) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrInsufficientCalibrationData
	}
	diff := prediction/floorStrike - 1
	n := 0
	for _, s := range samples {
		if s.PercentError > diff {
			n++
		}
	}
	return float64(n) / float64(len(samples)), nil
}

// ChooseSide picks the traded side for a prediction against a floor strike.
// The bool result is false when the prediction sits exactly on the strike:
// no directional edge exists and the contract is skipped.
func ChooseSide(prediction, floorStrike float64) (Side, bool) {
	switch {
	case prediction > floorStrike:
		return SideYes, true
	case prediction < floorStrike:
		return SideNo, true
	default:
		return "", false
	}
}
