// Package main rebuilds the point-in-time training dataset: one row per
// settlement Sunday with the forecast as it looked a week out and the
// matured outcome.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/brendanplayford/tsaw-go/internal/config"
	"github.com/brendanplayford/tsaw-go/pkg/backtest"
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
	endFlag := flag.String("end", "", "last settlement Sunday (YYYY-MM-DD, default today)")
	outPath := flag.String("out", filepath.Join(cfg.ReportDir, "dataset.csv"), "dataset CSV output")
	flag.Parse()

	if *startFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: -start is required")
		os.Exit(1)
	}
	start, err := time.ParseInLocation("2006-01-02", *startFlag, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad -start date %q: %v\n", *startFlag, err)
		os.Exit(1)
	}
	end := time.Now().UTC()
	if *endFlag != "" {
		end, err = time.ParseInLocation("2006-01-02", *endFlag, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad -end date %q: %v\n", *endFlag, err)
			os.Exit(1)
		}
	}

	counts, err := tsa.LoadDailyCounts(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading counts: %v\n", err)
		os.Exit(1)
	}

	rows, err := backtest.BuildDataset(counts, start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building dataset: %v\n", err)
		os.Exit(1)
	}

	if err := backtest.WriteDatasetCSV(*outPath, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing dataset: %v\n", err)
		os.Exit(1)
	}

	meta, err := backtest.BuildRunMetadata(*dataPath, backtest.RunParams{Start: start, End: end})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building metadata: %v\n", err)
		os.Exit(1)
	}
	outSum, err := backtest.FileSHA256(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing dataset: %v\n", err)
		os.Exit(1)
	}
	metaDoc := struct {
		backtest.RunMetadata
		Rows          int    `json:"rows"`
		DatasetSHA256 string `json:"dataset_sha256"`
	}{meta, len(rows), outSum}

	metaJSON, err := json.MarshalIndent(metaDoc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding metadata: %v\n", err)
		os.Exit(1)
	}
	metaPath := *outPath + ".meta.json"
	if err := os.WriteFile(metaPath, append(metaJSON, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing metadata: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s (metadata %s)\n", len(rows), *outPath, metaPath)
}
