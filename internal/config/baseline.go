package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BaselineConfig pins the parameters of a reference backtest run so it can
// be reproduced and compared against later runs.
type BaselineConfig struct {
	Backtest struct {
		Start                    string `yaml:"start"`
		End                      string `yaml:"end"`
		IntervalMinutes          int    `yaml:"interval_minutes"`
		IncludeLatestBeforeStart bool   `yaml:"include_latest_before_start"`
		CacheDir                 string `yaml:"cache_dir"`
	} `yaml:"backtest"`

	Reporting struct {
		ReportDir string `yaml:"report_dir"`
		// CompareResults optionally names a prior results CSV to diff
		// metrics against after the run.
		CompareResults string `yaml:"compare_results"`
	} `yaml:"reporting"`

	Data struct {
		PassengerCSV string `yaml:"passenger_csv"`
	} `yaml:"data"`
}

// LoadBaseline reads and validates a baseline file.
func LoadBaseline(path string) (*BaselineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var cfg BaselineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}

	if cfg.Backtest.CacheDir == "" {
		cfg.Backtest.CacheDir = DefaultCacheDir
	}
	if cfg.Reporting.ReportDir == "" {
		cfg.Reporting.ReportDir = DefaultReportDir
	}
	if cfg.Data.PassengerCSV == "" {
		cfg.Data.PassengerCSV = DefaultPassengerCSV
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the date window.
func (c *BaselineConfig) Validate() error {
	start, err := c.StartDate()
	if err != nil {
		return err
	}
	end, err := c.EndDate()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("baseline: end %s before start %s", c.Backtest.End, c.Backtest.Start)
	}
	if c.Backtest.IntervalMinutes < 0 {
		return fmt.Errorf("baseline: negative interval_minutes %d", c.Backtest.IntervalMinutes)
	}
	return nil
}

// StartDate parses the window start.
func (c *BaselineConfig) StartDate() (time.Time, error) {
	return parseDate("start", c.Backtest.Start)
}

// EndDate parses the window end.
func (c *BaselineConfig) EndDate() (time.Time, error) {
	return parseDate("end", c.Backtest.End)
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("baseline: %s date is required", field)
	}
	d, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("baseline: bad %s date %q: %w", field, v, err)
	}
	return d, nil
}
