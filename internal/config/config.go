// Package config provides configuration handling for the TSA forecasting
// and backtesting tools.
package config

import (
	"errors"
	"os"
)

var (
	// ErrMissingAPIKey is returned when the API key is not configured.
	ErrMissingAPIKey = errors.New("config: KALSHI_API_KEY environment variable not set")

	// ErrMissingPrivateKey is returned when the private key is not configured.
	ErrMissingPrivateKey = errors.New("config: KALSHI_PRIVATE_KEY environment variable not set")
)

// Defaults for file locations relative to the working directory.
const (
	DefaultCacheDir      = "data/tsa_market_history"
	DefaultReportDir     = "reports"
	DefaultPassengerCSV  = "data/tsa_data.csv"
	DefaultPredictionLog = "data/predictions.json"
)

// Config holds the application configuration.
type Config struct {
	// APIKey is the Kalshi API key. Optional for market-data reads.
	APIKey string

	// PrivateKey is the PEM-encoded key for signing requests.
	PrivateKey string

	// BaseURL overrides the REST base URL (optional).
	BaseURL string

	// Debug enables debug logging.
	Debug bool

	// CacheDir holds the candlestick cache database.
	CacheDir string

	// ReportDir receives generated reports and result tables.
	ReportDir string

	// PassengerCSV is the raw daily checkpoint counts file.
	PassengerCSV string

	// PredictionLog is the JSON log of weekly predictions.
	PredictionLog string
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for unset paths.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:        os.Getenv("KALSHI_API_KEY"),
		PrivateKey:    os.Getenv("KALSHI_PRIVATE_KEY"),
		BaseURL:       os.Getenv("KALSHI_API_URL"),
		Debug:         os.Getenv("KALSHI_DEBUG") == "true",
		CacheDir:      envOr("TSA_CACHE_DIR", DefaultCacheDir),
		ReportDir:     envOr("TSA_REPORT_DIR", DefaultReportDir),
		PassengerCSV:  envOr("TSA_DATA_CSV", DefaultPassengerCSV),
		PredictionLog: envOr("TSA_PREDICTION_LOG", DefaultPredictionLog),
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate checks that credentials required for authenticated operations
// are present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.PrivateKey == "" {
		return ErrMissingPrivateKey
	}
	return nil
}

// IsAuthenticated returns true if authentication credentials are configured.
func (c *Config) IsAuthenticated() bool {
	return c.APIKey != "" && c.PrivateKey != ""
}
