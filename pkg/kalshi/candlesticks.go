package kalshi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// CandlePrice is an OHLC group inside a candlestick. Fields are pointers:
// thin markets report candles with some or all price points absent, and
// absent is distinct from zero.
type CandlePrice struct {
	Open  *float64 `json:"open,omitempty"`
	Low   *float64 `json:"low,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Close *float64 `json:"close,omitempty"`
}

// Candlestick is one aggregation period of market activity, prices in cents.
type Candlestick struct {
	EndPeriodTs  int64       `json:"end_period_ts"`
	YesBid       CandlePrice `json:"yes_bid"`
	YesAsk       CandlePrice `json:"yes_ask"`
	Price        CandlePrice `json:"price"`
	Volume       int         `json:"volume"`
	OpenInterest int         `json:"open_interest"`
}

// CandlestickParams selects the candlestick window for a market.
type CandlestickParams struct {
	SeriesTicker             string
	Ticker                   string
	StartTs                  int64
	EndTs                    int64
	PeriodIntervalMinutes    int
	IncludeLatestBeforeStart bool
}

// GetCandlesticksResponse represents a candlestick history response.
type GetCandlesticksResponse struct {
	Ticker       string        `json:"ticker"`
	Candlesticks []Candlestick `json:"candlesticks"`
}

// GetMarketCandlesticks retrieves candlestick history for a market within
// its series.
func (c *Client) GetMarketCandlesticks(p CandlestickParams) ([]Candlestick, error) {
	q := url.Values{}
	q.Set("start_ts", strconv.FormatInt(p.StartTs, 10))
	q.Set("end_ts", strconv.FormatInt(p.EndTs, 10))
	q.Set("period_interval", strconv.Itoa(p.PeriodIntervalMinutes))
	if p.IncludeLatestBeforeStart {
		q.Set("include_latest_before_start", "true")
	}

	path := fmt.Sprintf("/series/%s/markets/%s/candlesticks?%s",
		p.SeriesTicker, p.Ticker, q.Encode())

	data, err := c.Get(path)
	if err != nil {
		return nil, err
	}

	var resp GetCandlesticksResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return resp.Candlesticks, nil
}
