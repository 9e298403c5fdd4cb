package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/brendanplayford/tsaw-go/pkg/model"
	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

// DatasetRow is one point-in-time training example: the forecast inputs as
// they looked on the run date, plus the matured outcome.
type DatasetRow struct {
	RunDate            time.Time
	TargetDate         time.Time
	Prediction         float64
	LastYearPassengers float64
	Day1Trend          float64
	Day7Trend          float64
	YoYAdjustment      float64
	Actual             float64
	PercentError       float64 // Actual/Prediction - 1
}

// BuildDataset reconstructs one row per settlement Sunday in [start, end],
// rebuilding features from counts visible on each run date. Sundays without
// enough history or a matured outcome are skipped.
func BuildDataset(counts []tsa.DailyCount, start, end time.Time) ([]DatasetRow, error) {
	fullTable, err := tsa.BuildFeatures(counts, tsa.Options{LagAnchor: tsa.DateOnly(end)})
	if err != nil {
		return nil, fmt.Errorf("build feature table: %w", err)
	}

	var rows []DatasetRow
	for target := tsa.UpcomingSunday(tsa.DateOnly(start)); !target.After(tsa.DateOnly(end)); target = target.AddDate(0, 0, 7) {
		runDate := target.AddDate(0, 0, -entryLeadDays)

		visible := tsa.FilterThrough(counts, runDate)
		table, err := tsa.BuildFeatures(visible, tsa.Options{LagAnchor: runDate})
		if err != nil {
			if errors.Is(err, tsa.ErrDataUnavailable) {
				continue
			}
			return nil, fmt.Errorf("features for %s: %w", target.Format("2006-01-02"), err)
		}

		pred, err := model.Predict(runDate, table)
		if err != nil {
			if errors.Is(err, model.ErrInsufficientHistory) {
				continue
			}
			return nil, fmt.Errorf("predict for %s: %w", target.Format("2006-01-02"), err)
		}

		actualRow, ok := fullTable.At(target)
		if !ok || math.IsNaN(actualRow.MovingAvg) {
			continue
		}

		rows = append(rows, DatasetRow{
			RunDate:            runDate,
			TargetDate:         target,
			Prediction:         pred.Value,
			LastYearPassengers: pred.LastYearPassengers,
			Day1Trend:          pred.Day1Trend,
			Day7Trend:          pred.Day7Trend,
			YoYAdjustment:      pred.YoYAdjustment,
			Actual:             actualRow.MovingAvg,
			PercentError:       actualRow.MovingAvg/pred.Value - 1,
		})
	}
	return rows, nil
}

// WriteDatasetCSV writes dataset rows to path, creating parent directories.
func WriteDatasetCSV(path string, rows []DatasetRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"run_date", "target_date", "prediction", "last_year_passengers",
		"day_1_trend", "day_7_trend", "yoy_adjustment", "actual", "percent_error",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.RunDate.Format("2006-01-02"),
			r.TargetDate.Format("2006-01-02"),
			formatFloat(r.Prediction),
			formatFloat(r.LastYearPassengers),
			formatFloat(r.Day1Trend),
			formatFloat(r.Day7Trend),
			formatFloat(r.YoYAdjustment),
			formatFloat(r.Actual),
			formatFloat(r.PercentError),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return nil
}
