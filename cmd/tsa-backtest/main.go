// Package main replays the weekly forecast against historical market prices
// and writes a graded results table.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/brendanplayford/tsaw-go/internal/config"
	"github.com/brendanplayford/tsaw-go/pkg/backtest"
	"github.com/brendanplayford/tsaw-go/pkg/kalshi"
	"github.com/brendanplayford/tsaw-go/pkg/tsa"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	dataPath := flag.String("data", cfg.PassengerCSV, "daily checkpoint counts CSV")
	startFlag := flag.String("start", "", "first settlement Sunday (YYYY-MM-DD)")
	endFlag := flag.String("end", "", "last settlement Sunday (YYYY-MM-DD)")
	interval := flag.Int("interval", 60, "candlestick interval in minutes")
	includeLatest := flag.Bool("include-latest", true, "include latest candle before window start")
	cacheDir := flag.String("cache", cfg.CacheDir, "candlestick cache directory (empty to disable)")
	outPath := flag.String("out", "", "results CSV path (default <report-dir>/results.csv)")
	demo := flag.Bool("demo", false, "use the demo exchange environment")
	flag.Parse()

	log := newLogger(cfg.Debug)

	start, end, err := parseWindow(*startFlag, *endFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *outPath == "" {
		*outPath = filepath.Join(cfg.ReportDir, "results.csv")
	}

	counts, err := tsa.LoadDailyCounts(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading counts: %v\n", err)
		os.Exit(1)
	}
	log.Info().Int("days", len(counts)).Msg("loaded checkpoint counts")

	var opts []kalshi.Option
	opts = append(opts, kalshi.WithLogger(log))
	if *demo {
		opts = append(opts, kalshi.WithDemo())
	}
	if cfg.BaseURL != "" {
		opts = append(opts, kalshi.WithBaseURL(cfg.BaseURL))
	}
	client := kalshi.New("", nil, opts...)

	var cache *backtest.CandleCache
	if *cacheDir != "" {
		cache, err = backtest.OpenCandleCache(*cacheDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
			os.Exit(1)
		}
		defer cache.Close()
	}

	engine := &backtest.Engine{
		Markets: client,
		Cache:   cache,
		Counts:  counts,
		Log:     log,
	}
	params := backtest.RunParams{
		Start:                    start,
		End:                      end,
		IntervalMinutes:          *interval,
		IncludeLatestBeforeStart: *includeLatest,
	}

	log.Info().
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Msg("starting backtest")

	results, err := engine.Run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running backtest: %v\n", err)
		os.Exit(1)
	}
	log.Info().Int("trades", len(results)).Msg("backtest complete")

	if err := backtest.WriteResultsCSV(*outPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d graded trades to %s\n", len(results), *outPath)

	meta, err := backtest.BuildRunMetadata(*dataPath, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building run metadata: %v\n", err)
		os.Exit(1)
	}
	store, err := backtest.OpenStore(cfg.ReportDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening run store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rep := backtest.Analyze(results)
	summaryPath := filepath.Join(cfg.ReportDir, "summary.md")
	if err := os.WriteFile(summaryPath, []byte(backtest.RenderReport(rep)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing summary: %v\n", err)
		os.Exit(1)
	}

	runID, err := store.SaveRun(meta, rep.Metrics, results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving run: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved run %d (total pnl %.4f over %d trades), summary at %s\n",
		runID, rep.Metrics.TotalPnL, rep.Metrics.Trades, summaryPath)
}

func parseWindow(startFlag, endFlag string) (time.Time, time.Time, error) {
	if startFlag == "" || endFlag == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("-start and -end are required")
	}
	start, err := time.ParseInLocation("2006-01-02", startFlag, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -start date %q: %w", startFlag, err)
	}
	end, err := time.ParseInLocation("2006-01-02", endFlag, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -end date %q: %w", endFlag, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-end %s before -start %s", endFlag, startFlag)
	}
	return start, end, nil
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
