package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/brendanplayford/tsaw-go/pkg/kalshi"
	"github.com/brendanplayford/tsaw-go/pkg/model"
	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

// RunParams bounds a backtest run.
type RunParams struct {
	Start                    time.Time
	End                      time.Time
	IntervalMinutes          int
	IncludeLatestBeforeStart bool
}

// Engine replays the forecast against historical weekly markets. For every
// settlement Sunday in range it rebuilds features from counts visible seven
// days before settlement, prices each floor-strike contract, and grades the
// simulated fill against the realized volume.
type Engine struct {
	Markets MarketDataProvider
	Cache   *CandleCache
	Counts  []tsa.DailyCount
	Log     zerolog.Logger
}

const entryLeadDays = 7

// Run executes the backtest. Weeks with insufficient history, unreachable
// events, or immature outcomes are skipped with a warning; an empty
// calibration table or a malformed generated ticker aborts the run.
func (e *Engine) Run(p RunParams) ([]Result, error) {
	if p.IntervalMinutes <= 0 {
		p.IntervalMinutes = 60
	}

	fullTable, err := tsa.BuildFeatures(e.Counts, tsa.Options{LagAnchor: tsa.DateOnly(p.End)})
	if err != nil {
		return nil, fmt.Errorf("build feature table: %w", err)
	}

	fetcher := &CandleFetcher{Provider: e.Markets, Cache: e.Cache, Log: e.Log}

	var results []Result
	seen := make(map[string]bool)

	for _, eventTicker := range WeeklyEventTickers(p.Start, p.End) {
		eventDate, err := ParseEventDate(eventTicker)
		if err != nil {
			return nil, err
		}
		runDate := eventDate.AddDate(0, 0, -entryLeadDays)
		wlog := e.Log.With().Str("event", eventTicker).Str("run_date", runDate.Format("2006-01-02")).Logger()

		// Rebuild features from counts knowable on the run date only.
		visible := tsa.FilterThrough(e.Counts, runDate)
		table, err := tsa.BuildFeatures(visible, tsa.Options{LagAnchor: runDate})
		if err != nil {
			if errors.Is(err, tsa.ErrDataUnavailable) {
				wlog.Warn().Err(err).Msg("skipping week: no visible counts")
				continue
			}
			return nil, fmt.Errorf("features for %s: %w", eventTicker, err)
		}

		pred, err := model.Predict(runDate, table)
		if err != nil {
			if errors.Is(err, model.ErrInsufficientHistory) {
				wlog.Warn().Err(err).Msg("skipping week: insufficient history")
				continue
			}
			return nil, fmt.Errorf("predict for %s: %w", eventTicker, err)
		}

		actualRow, ok := fullTable.At(eventDate)
		if !ok || math.IsNaN(actualRow.MovingAvg) {
			wlog.Warn().Msg("skipping week: outcome not yet matured")
			continue
		}
		actual := actualRow.MovingAvg

		samples := model.ErrorSamples(table)
		if len(samples) == 0 {
			return nil, model.ErrInsufficientCalibrationData
		}

		_, markets, err := e.Markets.GetEvent(eventTicker)
		if err != nil {
			wlog.Warn().Err(err).Msg("skipping week: event fetch failed")
			continue
		}

		for _, mkt := range markets {
			res, ok := e.gradeMarket(wlog, fetcher, p, mkt, runDate, eventDate, pred, actual, samples)
			if !ok {
				continue
			}
			key := res.Market + "_" + res.Date.Format("2006-01-02")
			if seen[key] {
				wlog.Warn().Str("market", res.Market).Msg("duplicate market grade suppressed")
				continue
			}
			seen[key] = true
			results = append(results, res)
		}
	}

	return results, nil
}

func (e *Engine) gradeMarket(
	wlog zerolog.Logger,
	fetcher *CandleFetcher,
	p RunParams,
	mkt kalshi.Market,
	runDate, eventDate time.Time,
	pred model.Prediction,
	actual float64,
	samples []model.ErrorSample,
) (Result, bool) {
	if mkt.FloorStrike == nil {
		wlog.Debug().Str("market", mkt.Ticker).Msg("skipping market: no floor strike")
		return Result{}, false
	}
	strike := *mkt.FloorStrike

	side, ok := model.ChooseSide(pred.Value, strike)
	if !ok {
		wlog.Debug().Str("market", mkt.Ticker).Msg("skipping market: prediction on the strike")
		return Result{}, false
	}

	var prob float64
	var err error
	if side == model.SideYes {
		prob, err = model.LikelihoodOfYes(pred.Value, strike, samples)
	} else {
		prob, err = model.LikelihoodOfNo(pred.Value, strike, samples)
	}
	if err != nil {
		wlog.Warn().Err(err).Str("market", mkt.Ticker).Msg("skipping market: no likelihood")
		return Result{}, false
	}

	series, err := SeriesOf(mkt.Ticker)
	if err != nil {
		wlog.Warn().Err(err).Msg("skipping market: malformed ticker")
		return Result{}, false
	}

	// Full trading window; the fill comes from the first candle in it.
	candles, err := fetcher.Fetch(kalshi.CandlestickParams{
		SeriesTicker:             series,
		Ticker:                   mkt.Ticker,
		StartTs:                  runDate.Unix(),
		EndTs:                    runDate.AddDate(0, 0, entryLeadDays).Unix(),
		PeriodIntervalMinutes:    p.IntervalMinutes,
		IncludeLatestBeforeStart: p.IncludeLatestBeforeStart,
	})
	if err != nil {
		wlog.Warn().Err(err).Str("market", mkt.Ticker).Msg("skipping market: candle fetch failed")
		return Result{}, false
	}

	fill, ok := FillPrice(candles)
	if !ok {
		wlog.Debug().Str("market", mkt.Ticker).Msg("skipping market: no usable fill price")
		return Result{}, false
	}

	// Rows are keyed by settlement date; the fill still comes from the
	// run-date window above.
	outcome := Outcome(actual, strike, side)
	return NewResult(mkt.Ticker, eventDate, side, prob, fill, outcome), true
}
