// Package main prices the live weekly event: it forecasts the settlement
// volume, estimates a likelihood for every floor-strike contract, and
// assesses the quoted prices. It never places orders.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/brendanplayford/tsaw-go/internal/config"
	"github.com/brendanplayford/tsaw-go/pkg/backtest"
	"github.com/brendanplayford/tsaw-go/pkg/kalshi"
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
	eventFlag := flag.String("event", "", "event ticker (default: next settlement Sunday)")
	demo := flag.Bool("demo", false, "use the demo exchange environment")
	flag.Parse()

	log := newLogger(cfg.Debug)

	counts, err := tsa.LoadDailyCounts(*dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading counts: %v\n", err)
		os.Exit(1)
	}

	now := tsa.DateOnly(time.Now().UTC())
	table, err := tsa.BuildFeatures(counts, tsa.Options{LagAnchor: now})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building features: %v\n", err)
		os.Exit(1)
	}

	pred, err := model.Predict(now, table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error predicting: %v\n", err)
		os.Exit(1)
	}
	samples := model.ErrorSamples(table)
	if len(samples) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %v\n", model.ErrInsufficientCalibrationData)
		os.Exit(1)
	}

	eventTicker := *eventFlag
	if eventTicker == "" {
		eventTicker = backtest.EventTicker(pred.TargetDate)
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

	_, markets, err := client.GetEvent(eventTicker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching event %s: %v\n", eventTicker, err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("WEEKLY VOLUME RECOMMENDATION - %s\n", eventTicker)
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("Prediction: %.0f for %s (%d calibration samples)\n\n",
		pred.Value, pred.TargetDate.Format("2006-01-02"), len(samples))

	fmt.Printf("%-28s %10s %5s %6s %9s  %s\n",
		"MARKET", "STRIKE", "SIDE", "PROB", "SIDE ASK", "ASSESSMENT")
	for _, mkt := range markets {
		if mkt.FloorStrike == nil {
			continue
		}
		strike := *mkt.FloorStrike

		side, ok := model.ChooseSide(pred.Value, strike)
		if !ok {
			log.Debug().Str("market", mkt.Ticker).Msg("prediction sits on the strike, skipping")
			continue
		}

		var prob float64
		var askCents int
		if side == model.SideYes {
			prob, err = model.LikelihoodOfYes(pred.Value, strike, samples)
			askCents = mkt.YesAsk
		} else {
			prob, err = model.LikelihoodOfNo(pred.Value, strike, samples)
			askCents = mkt.NoAsk
		}
		if err != nil {
			log.Warn().Err(err).Str("market", mkt.Ticker).Msg("no likelihood")
			continue
		}

		assessment := model.AssessPrice(prob, float64(askCents))
		fmt.Printf("%-28s %10.0f %5s %5.0f%% %8d¢  %s\n",
			mkt.Ticker, strike, side, prob*100, askCents, assessment)
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
