package backtest

import "github.com/brendanplayford/tsaw-go/pkg/kalshi"

// FillPrice derives an executable yes-side price in dollars from the first
// candle of a window. Preference order: bid/ask midpoint, then last trade
// close, then trade-range midpoint. Returns ok=false when no candle carries
// a usable price.
func FillPrice(candles []kalshi.Candlestick) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	c := candles[0]

	if c.YesBid.Close != nil && c.YesAsk.Close != nil {
		return (*c.YesBid.Close + *c.YesAsk.Close) / 2 / 100, true
	}
	if c.Price.Close != nil {
		return *c.Price.Close / 100, true
	}
	if c.Price.High != nil && c.Price.Low != nil {
		return (*c.Price.High + *c.Price.Low) / 2 / 100, true
	}
	return 0, false
}
