package backtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/brendanplayford/tsaw-go/pkg/kalshi"
	"github.com/brendanplayford/tsaw-go/pkg/model"
	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

type fakeProvider struct {
	events   map[string][]kalshi.Market
	eventErr map[string]error
	candles  map[string][]kalshi.Candlestick
}

func (f *fakeProvider) GetEvent(eventTicker string) (*kalshi.Event, []kalshi.Market, error) {
	if err := f.eventErr[eventTicker]; err != nil {
		return nil, nil, err
	}
	markets, ok := f.events[eventTicker]
	if !ok {
		return nil, nil, fmt.Errorf("no such event %s", eventTicker)
	}
	return &kalshi.Event{EventTicker: eventTicker, SeriesTicker: SeriesTicker}, markets, nil
}

func (f *fakeProvider) GetMarketCandlesticks(p kalshi.CandlestickParams) ([]kalshi.Candlestick, error) {
	return f.candles[p.Ticker], nil
}

// linearCounts grows steadily so every moving average and year-ago join is
// defined across the range.
func linearCounts(from, through time.Time) []tsa.DailyCount {
	var counts []tsa.DailyCount
	i := 0
	for d := from; !d.After(through); d = d.AddDate(0, 0, 1) {
		counts = append(counts, tsa.DailyCount{Date: d, Passengers: 2_000_000 + 100*float64(i)})
		i++
	}
	return counts
}

func strikeMarket(eventTicker string, suffix string, strike *float64) kalshi.Market {
	return kalshi.Market{
		Ticker:      eventTicker + "-" + suffix,
		EventTicker: eventTicker,
		FloorStrike: strike,
	}
}

func tradableCandles() []kalshi.Candlestick {
	return []kalshi.Candlestick{{
		YesBid: kalshi.CandlePrice{Close: fp(30)},
		YesAsk: kalshi.CandlePrice{Close: fp(50)},
	}}
}

func TestEngineRun(t *testing.T) {
	counts := linearCounts(date(2023, time.January, 1), date(2025, time.December, 31))

	ev1 := EventTicker(date(2025, time.November, 23))
	ev2 := EventTicker(date(2025, time.November, 30))
	low, high := 2_000_000.0, 2_300_000.0

	provider := &fakeProvider{
		events: map[string][]kalshi.Market{
			ev1: {
				strikeMarket(ev1, "A2.0", &low),
				strikeMarket(ev1, "A2.3", &high),
				strikeMarket(ev1, "RANGE", nil),
			},
			ev2: {
				strikeMarket(ev2, "A2.0", &low),
			},
		},
		candles: map[string][]kalshi.Candlestick{
			ev1 + "-A2.0": tradableCandles(),
			ev1 + "-A2.3": tradableCandles(),
			ev2 + "-A2.0": tradableCandles(),
		},
	}

	e := &Engine{Markets: provider, Counts: counts, Log: zerolog.Nop()}
	results, err := e.Run(RunParams{
		Start: date(2025, time.November, 23),
		End:   date(2025, time.November, 30),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The strikeless market is skipped, everything else trades.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(results), results)
	}

	byMarket := make(map[string]Result)
	for _, r := range results {
		byMarket[r.Market] = r
	}

	aboveLow := byMarket[ev1+"-A2.0"]
	if aboveLow.Side != model.SideYes {
		t.Errorf("prediction above low strike should trade yes, got %s", aboveLow.Side)
	}
	if aboveLow.Outcome != 1 {
		t.Errorf("realized volume above low strike should settle yes, outcome = %d", aboveLow.Outcome)
	}
	if aboveLow.FillPrice != 0.40 {
		t.Errorf("fill = %v, want 0.40 midpoint", aboveLow.FillPrice)
	}

	belowHigh := byMarket[ev1+"-A2.3"]
	if belowHigh.Side != model.SideNo {
		t.Errorf("prediction below high strike should trade no, got %s", belowHigh.Side)
	}
	if belowHigh.Outcome != 1 {
		t.Errorf("realized volume below high strike should settle no, outcome = %d", belowHigh.Outcome)
	}

	// Rows carry the settlement Sunday, not the entry date a week earlier.
	if !byMarket[ev1+"-A2.0"].Date.Equal(date(2025, time.November, 23)) {
		t.Errorf("result date = %v, want settlement date 2025-11-23", byMarket[ev1+"-A2.0"].Date)
	}
	if !byMarket[ev2+"-A2.0"].Date.Equal(date(2025, time.November, 30)) {
		t.Errorf("result date = %v, want settlement date 2025-11-30", byMarket[ev2+"-A2.0"].Date)
	}

	// Probabilities are honest fractions.
	for _, r := range results {
		if r.Prob < 0 || r.Prob > 1 {
			t.Errorf("%s prob = %v", r.Market, r.Prob)
		}
	}
}

func TestEngineSkipsUnfetchableWeeks(t *testing.T) {
	counts := linearCounts(date(2023, time.January, 1), date(2025, time.December, 31))

	ev1 := EventTicker(date(2025, time.November, 23))
	ev2 := EventTicker(date(2025, time.November, 30))
	low := 2_000_000.0

	provider := &fakeProvider{
		events: map[string][]kalshi.Market{
			ev2: {strikeMarket(ev2, "A2.0", &low)},
		},
		eventErr: map[string]error{
			ev1: fmt.Errorf("exchange down"),
		},
		candles: map[string][]kalshi.Candlestick{
			ev2 + "-A2.0": tradableCandles(),
		},
	}

	e := &Engine{Markets: provider, Counts: counts, Log: zerolog.Nop()}
	results, err := e.Run(RunParams{
		Start: date(2025, time.November, 23),
		End:   date(2025, time.November, 30),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 || results[0].Market != ev2+"-A2.0" {
		t.Fatalf("results = %+v, want only the reachable week", results)
	}
}

func TestEngineIgnoresCountsAfterRunDate(t *testing.T) {
	base := linearCounts(date(2023, time.January, 1), date(2025, time.November, 30))

	// Same series with a huge spike strictly after the last settlement.
	spiked := append(linearCounts(date(2023, time.January, 1), date(2025, time.November, 30)),
		tsa.DailyCount{Date: date(2025, time.December, 1), Passengers: 9_000_000})

	ev := EventTicker(date(2025, time.November, 23))
	low := 2_000_000.0
	provider := &fakeProvider{
		events: map[string][]kalshi.Market{
			ev: {strikeMarket(ev, "A2.0", &low)},
		},
		candles: map[string][]kalshi.Candlestick{
			ev + "-A2.0": tradableCandles(),
		},
	}
	params := RunParams{Start: date(2025, time.November, 23), End: date(2025, time.November, 23)}

	run := func(counts []tsa.DailyCount) []Result {
		t.Helper()
		e := &Engine{Markets: provider, Counts: counts, Log: zerolog.Nop()}
		results, err := e.Run(params)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return results
	}

	r1 := run(base)
	r2 := run(spiked)
	if len(r1) != 1 || len(r2) != 1 {
		t.Fatalf("results = %d and %d, want 1 each", len(r1), len(r2))
	}
	if r1[0] != r2[0] {
		t.Errorf("data after the settlement window changed the grade: %+v vs %+v", r1[0], r2[0])
	}
}

func TestEngineSkipsImmatureWeeks(t *testing.T) {
	// Counts end before the settlement Sunday, so no outcome exists.
	counts := linearCounts(date(2023, time.January, 1), date(2025, time.November, 20))

	ev := EventTicker(date(2025, time.November, 23))
	low := 2_000_000.0
	provider := &fakeProvider{
		events: map[string][]kalshi.Market{
			ev: {strikeMarket(ev, "A2.0", &low)},
		},
		candles: map[string][]kalshi.Candlestick{
			ev + "-A2.0": tradableCandles(),
		},
	}

	e := &Engine{Markets: provider, Counts: counts, Log: zerolog.Nop()}
	results, err := e.Run(RunParams{
		Start: date(2025, time.November, 23),
		End:   date(2025, time.November, 23),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("immature week produced results: %+v", results)
	}
}
