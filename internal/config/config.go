package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a backtest run.
type Config struct {
	Database  Database  `yaml:"database"`
	Logging   Logging   `yaml:"logging"`
	Backtest  Backtest  `yaml:"backtest"`
	Strategy  Strategy  `yaml:"strategy"`
	Reporting Reporting `yaml:"reporting"`
}

// Database holds the connection string for the candle store.
type Database struct {
	URL string `yaml:"url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backtest holds the simulation parameters. Monetary values are parsed as
// strings and converted to decimals at engine construction so YAML float
// rounding never touches them.
type Backtest struct {
	Symbols            []string `yaml:"symbols"`
	Timeframe          string   `yaml:"timeframe"`
	Start              string   `yaml:"start"`
	End                string   `yaml:"end"`
	InitialCash        string   `yaml:"initial_cash"`
	CommissionPerShare string   `yaml:"commission_per_share"`
	SlippagePercent    string   `yaml:"slippage_percent"`
	CashFloor          string   `yaml:"cash_floor"`
	AllowShortSelling  bool     `yaml:"allow_short_selling"`
}

// Strategy selects which strategy to run and its tunables.
type Strategy struct {
	Name       string `yaml:"name"`
	FastPeriod int    `yaml:"fast_period"`
	SlowPeriod int    `yaml:"slow_period"`
}

// Reporting controls how results are written after a run.
type Reporting struct {
	PrintTrades   bool   `yaml:"print_trades"`
	TradesCSVPath string `yaml:"trades_csv_path"`
	EquityCSVPath string `yaml:"equity_csv_path"`
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
