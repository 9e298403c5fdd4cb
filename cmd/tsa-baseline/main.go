// Package main reruns the pinned reference backtest from a baseline file
// and writes its full artifact set: results, sanity report, and metrics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

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

	baselinePath := flag.String("config", "baseline.yaml", "baseline configuration file")
	comparePath := flag.String("compare", "", "prior results CSV to diff metrics against")
	demo := flag.Bool("demo", false, "use the demo exchange environment")
	flag.Parse()

	log := newLogger(cfg.Debug)

	baseline, err := config.LoadBaseline(*baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading baseline: %v\n", err)
		os.Exit(1)
	}
	start, _ := baseline.StartDate()
	end, _ := baseline.EndDate()

	counts, err := tsa.LoadDailyCounts(baseline.Data.PassengerCSV)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading counts: %v\n", err)
		os.Exit(1)
	}

	var opts []kalshi.Option
	opts = append(opts, kalshi.WithLogger(log))
	if *demo {
		opts = append(opts, kalshi.WithDemo())
	}
	if cfg.BaseURL != "" {
		opts = append(opts, kalshi.WithBaseURL(cfg.BaseURL))
	}
	client := kalshi.New("", nil, opts...)

	cache, err := backtest.OpenCandleCache(baseline.Backtest.CacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	engine := &backtest.Engine{Markets: client, Cache: cache, Counts: counts, Log: log}
	params := backtest.RunParams{
		Start:                    start,
		End:                      end,
		IntervalMinutes:          baseline.Backtest.IntervalMinutes,
		IncludeLatestBeforeStart: baseline.Backtest.IncludeLatestBeforeStart,
	}

	results, err := engine.Run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running baseline backtest: %v\n", err)
		os.Exit(1)
	}

	reportDir := baseline.Reporting.ReportDir
	resultsPath := filepath.Join(reportDir, "baseline_results.csv")
	if err := backtest.WriteResultsCSV(resultsPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}

	artifacts := []string{resultsPath}

	rep := backtest.Analyze(results)
	sanityPath := filepath.Join(reportDir, "baseline_sanity.md")
	if err := os.WriteFile(sanityPath, []byte(backtest.RenderReport(rep)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	artifacts = append(artifacts, sanityPath)

	metricsJSON, err := json.MarshalIndent(rep.Metrics.Map(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding metrics: %v\n", err)
		os.Exit(1)
	}
	metricsPath := filepath.Join(reportDir, "baseline_metrics.json")
	if err := os.WriteFile(metricsPath, append(metricsJSON, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
		os.Exit(1)
	}
	artifacts = append(artifacts, metricsPath)

	priorPath := baseline.Reporting.CompareResults
	if *comparePath != "" {
		priorPath = *comparePath
	}
	if priorPath != "" {
		prior, _, err := backtest.ReadResultsCSV(priorPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading prior results: %v\n", err)
			os.Exit(1)
		}
		deltas := backtest.CompareMetrics(backtest.Analyze(prior).Metrics, rep.Metrics)
		comparison := filepath.Join(reportDir, "baseline_comparison.md")
		if err := os.WriteFile(comparison, []byte(backtest.RenderComparison(deltas)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing comparison: %v\n", err)
			os.Exit(1)
		}
		log.Info().Str("path", comparison).Msg("wrote baseline comparison")
		artifacts = append(artifacts, comparison)
	}

	meta, err := backtest.BuildRunMetadata(baseline.Data.PassengerCSV, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building run metadata: %v\n", err)
		os.Exit(1)
	}
	store, err := backtest.OpenStore(reportDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening run store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	runID, err := store.SaveRun(meta, rep.Metrics, results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving run: %v\n", err)
		os.Exit(1)
	}

	if err := writeManifest(filepath.Join(reportDir, "baseline_manifest.json"), *baselinePath, artifacts); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing manifest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Baseline run %d: %d trades, total pnl %.4f, artifacts in %s\n",
		runID, rep.Metrics.Trades, rep.Metrics.TotalPnL, reportDir)
}

type manifestEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// writeManifest records a checksum for the config and every artifact the
// run produced, so a stored baseline can be verified byte for byte.
func writeManifest(path, configPath string, artifacts []string) error {
	doc := struct {
		Config    manifestEntry   `json:"config"`
		Artifacts []manifestEntry `json:"artifacts"`
	}{}

	sum, err := backtest.FileSHA256(configPath)
	if err != nil {
		return err
	}
	doc.Config = manifestEntry{Path: configPath, SHA256: sum}

	for _, a := range artifacts {
		sum, err := backtest.FileSHA256(a)
		if err != nil {
			return err
		}
		doc.Artifacts = append(doc.Artifacts, manifestEntry{Path: a, SHA256: sum})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
