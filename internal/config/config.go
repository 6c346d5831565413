package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"hindsight/internal/optimize"
)

// DefaultPath is used when HINDSIGHT_CONFIG is not set.
const DefaultPath = "config/hindsight.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for hindsight.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Optimize OptimizeConfig `yaml:"optimize"`
	Compare  CompareConfig  `yaml:"compare"`
	Gather   GatherConfig   `yaml:"gather"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig defines the simulated account and its costs.
type BacktestConfig struct {
	Symbol         string  `yaml:"symbol"`
	InitialBalance float64 `yaml:"initial_balance"`
	CommissionRate float64 `yaml:"commission_rate"`
	RiskFreeRate   float64 `yaml:"risk_free_rate"`
	Days           float64 `yaml:"days"`
	MaxPositionPct float64 `yaml:"max_position_pct"`
}

// OptimizeConfig names the strategy to tune and the grid to search.
type OptimizeConfig struct {
	Strategy string        `yaml:"strategy"`
	Grid     optimize.Grid `yaml:"grid"`
}

// CompareConfig lists the strategies to compare. An empty list means all.
type CompareConfig struct {
	Strategies []string `yaml:"strategies"`
	Workers    int      `yaml:"workers"`
}

// GatherConfig controls historical price downloads.
type GatherConfig struct {
	Symbols         []string `yaml:"symbols"`
	Timeframe       string   `yaml:"timeframe"`
	StartDate       string   `yaml:"start_date"`
	EndDate         string   `yaml:"end_date"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	MaxAttempts     int      `yaml:"max_attempts"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/hindsight.db",
		},
		Alpaca:  Alpaca{Feed: "iex"},
		Logging: Logging{Level: "info", Format: "json"},
		Backtest: BacktestConfig{
			Symbol:         "BTCUSD",
			InitialBalance: 10000,
			CommissionRate: 0.001,
			MaxPositionPct: 1,
		},
		Compare: CompareConfig{Workers: 1},
		Gather: GatherConfig{
			Timeframe:       "1Hour",
			StartDate:       "2024-01-01",
			RateLimitPerMin: 200,
			MaxAttempts:     3,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path on top of
// Default(), and then applies environment variable overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the configuration file path from HINDSIGHT_CONFIG, or
// DefaultPath.
func Path() string {
	if v := os.Getenv("HINDSIGHT_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("HINDSIGHT_COMMISSION_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("HINDSIGHT_COMMISSION_RATE: %w", err)
		}
		cfg.Backtest.CommissionRate = f
	}

	if v := os.Getenv("HINDSIGHT_INITIAL_BALANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("HINDSIGHT_INITIAL_BALANCE: %w", err)
		}
		cfg.Backtest.InitialBalance = f
	}

	// Standard Alpaca env vars take precedence: they are the names the SDK reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}
