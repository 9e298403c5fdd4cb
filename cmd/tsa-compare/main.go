// Package main diffs the metrics of two backtest results tables.
package main

import (
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

	basePath := flag.String("base", "", "baseline results CSV")
	currentPath := flag.String("current", "", "candidate results CSV")
	outPath := flag.String("out", filepath.Join(cfg.ReportDir, "comparison.md"), "markdown output")
	flag.Parse()

	if *basePath == "" || *currentPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -base and -current are required")
		os.Exit(1)
	}

	base, err := loadMetrics(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading base: %v\n", err)
		os.Exit(1)
	}
	current, err := loadMetrics(*currentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading current: %v\n", err)
		os.Exit(1)
	}

	deltas := backtest.CompareMetrics(base, current)
	out := backtest.RenderComparison(deltas)

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing comparison: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(out)
	fmt.Printf("Comparison written to %s\n", *outPath)
}

func loadMetrics(path string) (backtest.Metrics, error) {
	results, missing, err := backtest.ReadResultsCSV(path)
	if err != nil {
		return backtest.Metrics{}, err
	}
	if len(missing) > 0 {
		return backtest.Metrics{}, fmt.Errorf("%s missing columns: %s", path, strings.Join(missing, ", "))
	}
	return backtest.Analyze(results).Metrics, nil
}
