// Package main validates a backtest results table and writes a sanity
// report. Failed checks are reported in the artifacts, not the exit code;
// only unreadable input exits non-zero.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/brendanplayford/tsaw-go/internal/config"
	"github.com/brendanplayford/tsaw-go/pkg/backtest"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	resultsPath := flag.String("results", filepath.Join(cfg.ReportDir, "results.csv"), "graded results CSV")
	reportPath := flag.String("report", filepath.Join(cfg.ReportDir, "sanity.md"), "markdown report output")
	metricsPath := flag.String("metrics", filepath.Join(cfg.ReportDir, "metrics.json"), "metrics JSON output")
	flag.Parse()

	results, missing, err := backtest.ReadResultsCSV(*resultsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading results: %v\n", err)
		os.Exit(1)
	}
	if len(missing) > 0 {
		// Schema failure short-circuits the analysis but still leaves an
		// artifact saying why.
		msg := fmt.Sprintf("# Backtest Sanity Report\n\nSchema check FAILED: missing columns %s\n",
			strings.Join(missing, ", "))
		if err := writeFile(*reportPath, msg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Schema check failed (missing %s), report at %s\n", strings.Join(missing, ", "), *reportPath)
		return
	}

	rep := backtest.Analyze(results)

	if err := writeFile(*reportPath, backtest.RenderReport(rep)); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(rep.Metrics.Map(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding metrics: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(*metricsPath, string(data)+"\n"); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
		os.Exit(1)
	}

	status := "all checks passed"
	if !rep.Passed() {
		status = "CHECKS FAILED"
	}
	fmt.Printf("%d trades analyzed, %s\n", rep.Metrics.Trades, status)
	fmt.Printf("Report: %s\nMetrics: %s\n", *reportPath, *metricsPath)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
