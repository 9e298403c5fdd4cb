package kalshi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("", nil,
		WithBaseURL(srv.URL),
		WithMaxAttempts(3),
		WithRetryBaseDelay(time.Millisecond),
	)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"market":{"ticker":"KXTSAW-25DEC07-A2.5"}}`))
	})

	m, err := c.GetMarket("KXTSAW-25DEC07-A2.5")
	if err != nil {
		t.Fatalf("GetMarket() error = %v", err)
	}
	if m.Ticker != "KXTSAW-25DEC07-A2.5" {
		t.Errorf("ticker = %q", m.Ticker)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestGetExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Get("/markets")
	if !errors.Is(err, ErrMarketDataUnavailable) {
		t.Fatalf("error = %v, want ErrMarketDataUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3 (retry budget)", got)
	}
}

func TestGetClientErrorFailsFast(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"not_found","message":"no such event"}}`))
	})

	_, _, err := c.GetEvent("KXTSAW-25DEC07")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 4xx)", got)
	}
}

func TestUnauthenticatedRequestsOmitSignatureHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		for _, h := range []string{"KALSHI-ACCESS-KEY", "KALSHI-ACCESS-TIMESTAMP", "KALSHI-ACCESS-SIGNATURE"} {
			if r.Header.Get(h) != "" {
				t.Errorf("unauthenticated request carries %s", h)
			}
		}
		w.Write([]byte(`{"markets":[]}`))
	})

	if _, err := c.GetMarkets(""); err != nil {
		t.Fatalf("GetMarkets() error = %v", err)
	}
}

func TestAuthenticatedRequestsSigned(t *testing.T) {
	key := testKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range []string{"KALSHI-ACCESS-KEY", "KALSHI-ACCESS-TIMESTAMP", "KALSHI-ACCESS-SIGNATURE"} {
			if r.Header.Get(h) == "" {
				t.Errorf("authenticated request missing %s", h)
			}
		}
		w.Write([]byte(`{"balance":100}`))
	}))
	defer srv.Close()

	c := New("test-key-id", key, WithBaseURL(srv.URL))
	if _, err := c.Get("/portfolio/balance"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestGetMarketCandlesticksPath(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"ticker":"KXTSAW-25DEC07-A2.5","candlesticks":[{"end_period_ts":1733000000,"yes_bid":{"close":30},"yes_ask":{"close":50},"volume":12}]}`))
	})

	candles, err := c.GetMarketCandlesticks(CandlestickParams{
		SeriesTicker:             "KXTSAW",
		Ticker:                   "KXTSAW-25DEC07-A2.5",
		StartTs:                  1732900000,
		EndTs:                    1733000000,
		PeriodIntervalMinutes:    60,
		IncludeLatestBeforeStart: true,
	})
	if err != nil {
		t.Fatalf("GetMarketCandlesticks() error = %v", err)
	}

	if want := "/series/KXTSAW/markets/KXTSAW-25DEC07-A2.5/candlesticks"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	for _, frag := range []string{"start_ts=1732900000", "end_ts=1733000000", "period_interval=60", "include_latest_before_start=true"} {
		if !strings.Contains(gotQuery, frag) {
			t.Errorf("query %q missing %q", gotQuery, frag)
		}
	}

	if len(candles) != 1 {
		t.Fatalf("got %d candles, want 1", len(candles))
	}
	cd := candles[0]
	if cd.EndPeriodTs != 1733000000 || cd.Volume != 12 {
		t.Errorf("candle = %+v", cd)
	}
	if cd.YesBid.Close == nil || *cd.YesBid.Close != 30 {
		t.Errorf("yes_bid close = %v, want 30", cd.YesBid.Close)
	}
	if cd.Price.Close != nil {
		t.Errorf("absent price close should decode as nil, got %v", *cd.Price.Close)
	}
}
