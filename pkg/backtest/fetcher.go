package backtest

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brendanplayford/tsaw-go/pkg/kalshi"
)

// MarketDataProvider is the read surface the backtest needs from the
// exchange. *kalshi.Client satisfies it; tests substitute fakes.
type MarketDataProvider interface {
	GetEvent(eventTicker string) (*kalshi.Event, []kalshi.Market, error)
	GetMarketCandlesticks(p kalshi.CandlestickParams) ([]kalshi.Candlestick, error)
}

// CandleFetcher reads candlesticks through the cache. A nil cache degrades
// to fetching every request.
type CandleFetcher struct {
	Provider MarketDataProvider
	Cache    *CandleCache
	Log      zerolog.Logger
}

// Fetch returns candlesticks for p, serving from cache when possible and
// caching fresh responses.
func (f *CandleFetcher) Fetch(p kalshi.CandlestickParams) ([]kalshi.Candlestick, error) {
	key := CacheKey(p.Ticker, p.PeriodIntervalMinutes, p.StartTs, p.EndTs, p.IncludeLatestBeforeStart)

	if f.Cache != nil {
		payload, ok, err := f.Cache.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			var candles []kalshi.Candlestick
			if err := json.Unmarshal(payload, &candles); err != nil {
				return nil, fmt.Errorf("decode cached candles %s: %w", key, err)
			}
			f.Log.Debug().Str("key", key).Msg("candle cache hit")
			return candles, nil
		}
	}

	candles, err := f.Provider.GetMarketCandlesticks(p)
	if err != nil {
		return nil, err
	}

	if f.Cache != nil {
		payload, err := json.Marshal(candles)
		if err != nil {
			return nil, fmt.Errorf("encode candles %s: %w", key, err)
		}
		if err := f.Cache.Put(key, payload); err != nil {
			return nil, err
		}
	}
	return candles, nil
}
