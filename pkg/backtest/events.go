// Package backtest replays the weekly passenger forecast against historical
// market prices and grades the results.
package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

// SeriesTicker is the weekly TSA check-in volume series.
const SeriesTicker = "KXTSAW"

const eventDateLayout = "06Jan02"

// FormatEventDate renders a settlement Sunday in ticker form, e.g. 25DEC07.
func FormatEventDate(d time.Time) string {
	return strings.ToUpper(d.Format(eventDateLayout))
}

// EventTicker builds the event ticker for a settlement Sunday.
func EventTicker(d time.Time) string {
	return SeriesTicker + "-" + FormatEventDate(d)
}

// ParseEventDate recovers the settlement date from an event ticker's date
// code, e.g. "25DEC07" -> 2025-12-07.
func ParseEventDate(eventTicker string) (time.Time, error) {
	idx := strings.Index(eventTicker, "-")
	if idx < 0 || idx+1 >= len(eventTicker) {
		return time.Time{}, fmt.Errorf("malformed event ticker %q", eventTicker)
	}
	code := eventTicker[idx+1:]
	if len(code) != len(eventDateLayout) {
		return time.Time{}, fmt.Errorf("malformed event date code %q in %q", code, eventTicker)
	}

	// Ticker codes are upper case; the reference layout is mixed case.
	normalized := code[:2] + strings.ToUpper(code[2:3]) + strings.ToLower(code[3:5]) + code[5:]
	d, err := time.ParseInLocation(eventDateLayout, normalized, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed event date code %q in %q: %w", code, eventTicker, err)
	}
	return d, nil
}

// SeriesOf extracts the series ticker from a market ticker, the part before
// the first dash. Returns an error for tickers with no series prefix.
func SeriesOf(marketTicker string) (string, error) {
	idx := strings.Index(marketTicker, "-")
	if idx <= 0 {
		return "", fmt.Errorf("malformed market ticker %q", marketTicker)
	}
	return marketTicker[:idx], nil
}

// WeeklyEventTickers lists the event ticker for every settlement Sunday in
// [start, end]. Bounds that are not Sundays snap forward to the first Sunday
// on or after them.
func WeeklyEventTickers(start, end time.Time) []string {
	start = tsa.DateOnly(start)
	end = tsa.DateOnly(end)

	d := tsa.UpcomingSunday(start)
	var tickers []string
	for !d.After(end) {
		tickers = append(tickers, EventTicker(d))
		d = d.AddDate(0, 0, 7)
	}
	return tickers
}
