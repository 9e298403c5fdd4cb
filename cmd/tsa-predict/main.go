// Package main prints the passenger-volume forecast for the next weekly
// settlement and appends it to the prediction log.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/brendanplayford/tsaw-go/internal/config"
	"github.com/brendanplayford/tsaw-go/pkg/model"
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
	asOfFlag := flag.String("asof", "", "forecast as of this date (YYYY-MM-DD, default today)")
	logPath := flag.String("log", cfg.PredictionLog, "prediction log JSON (empty to skip saving)")
	asJSON := flag.Bool("json", false, "print the prediction as JSON instead of text")
	flag.Parse()

	log := newLogger(cfg.Debug)

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		asOf, err = time.ParseInLocation("2006-01-02", *asOfFlag, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad -asof date %q: %v\n", *asOfFlag, err)
			os.Exit(1)
		}
	}

	counts, err := tsa.LoadDailyCounts(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading counts: %v\n", err)
		os.Exit(1)
	}
	log.Info().Int("days", len(counts)).Str("path", *dataPath).Msg("loaded checkpoint counts")

	table, err := tsa.BuildFeatures(counts, tsa.Options{LagAnchor: tsa.DateOnly(asOf)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building features: %v\n", err)
		os.Exit(1)
	}

	pred, err := model.Predict(asOf, table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error predicting: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out, err := json.MarshalIndent(pred, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding prediction: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	} else {
		fmt.Printf("Target Sunday:     %s\n", pred.TargetDate.Format("2006-01-02"))
		fmt.Printf("Prediction:        %.0f (7-day average)\n", pred.Value)
		fmt.Printf("Last year average: %.0f\n", pred.LastYearPassengers)
		fmt.Printf("YoY adjustment:    %.4f (7d %.4f, 1d %.4f)\n", pred.YoYAdjustment, pred.Day7Trend, pred.Day1Trend)
		fmt.Printf("Days until target: %d (data through %s)\n", pred.DaysUntilTarget, pred.MostRecentSourceDate.Format("2006-01-02"))
	}

	if *logPath != "" {
		if err := model.SavePrediction(*logPath, pred); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving prediction: %v\n", err)
			os.Exit(1)
		}
		log.Info().Str("path", *logPath).Msg("prediction saved")
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
