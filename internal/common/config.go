// Package common provides shared utilities for Surge
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Surge
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Clients     ClientsConfig  `toml:"clients"`
	Screener    ScreenerConfig `toml:"screener"`
	News        NewsConfig     `toml:"news"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
	Alpaca       AlpacaConfig       `toml:"alpaca"`
}

// AlphaVantageConfig holds the primary market data provider configuration.
// MinInterval is the spacing enforced between upstream calls; BatchPause is an
// extra wait inserted after every BatchSize calls.
type AlphaVantageConfig struct {
	BaseURL     string `toml:"base_url"`
	APIKey      string `toml:"api_key"`
	MinInterval string `toml:"min_interval"`
	BatchSize   int    `toml:"batch_size"`
	BatchPause  string `toml:"batch_pause"`
	Timeout     string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetMinInterval parses and returns the minimum spacing between calls
func (c *AlphaVantageConfig) GetMinInterval() time.Duration {
	return parseDuration(c.MinInterval, 12*time.Second)
}

// GetBatchPause parses and returns the pause applied after each batch
func (c *AlphaVantageConfig) GetBatchPause() time.Duration {
	return parseDuration(c.BatchPause, 12*time.Second)
}

// AlpacaConfig holds the optional fallback quote provider configuration
type AlpacaConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Feed      string `toml:"feed"`
}

// ScreenerConfig holds screening run configuration
type ScreenerConfig struct {
	UniverseFile    string         `toml:"universe_file"` // optional YAML override of the built-in universe
	Symbols         []string       `toml:"symbols"`       // optional subset of the universe to screen
	RefreshInterval string         `toml:"refresh_interval"`
	RunTimeout      string         `toml:"run_timeout"` // upper bound on one screening run
	Workers         int            `toml:"workers"`
	FetchOverview   bool           `toml:"fetch_overview"`
	Criteria        CriteriaConfig `toml:"criteria"`
}

// GetRefreshInterval parses and returns the auto refresh interval. Zero disables refresh.
func (c *ScreenerConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, 30*time.Second)
}

// GetRunTimeout parses and returns the limit on a single screening run
func (c *ScreenerConfig) GetRunTimeout() time.Duration {
	return parseDuration(c.RunTimeout, 15*time.Minute)
}

// CriteriaConfig holds the default screening thresholds. Optional thresholds are
// disabled when zero.
type CriteriaConfig struct {
	MaxPrice            float64 `toml:"max_price"`
	MinAbsChangePercent float64 `toml:"min_abs_change_percent"`
	MinVolume           int64   `toml:"min_volume"`
	MinGapUp            float64 `toml:"min_gap_up"`
	MinRelativeVolume   float64 `toml:"min_relative_volume"`
	MaxFloat            float64 `toml:"max_float"`
	MinMarketCap        float64 `toml:"min_market_cap"`
}

// NewsConfig holds news catalyst feed configuration
type NewsConfig struct {
	Topics          []string `toml:"topics"`
	Limit           int      `toml:"limit"`
	RefreshInterval string   `toml:"refresh_interval"`
}

// GetRefreshInterval parses and returns the news refresh interval. Zero disables refresh.
func (c *NewsConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, 5*time.Minute)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Clients: ClientsConfig{
			AlphaVantage: AlphaVantageConfig{
				BaseURL:     "https://www.alphavantage.co/query",
				MinInterval: "12s",
				BatchSize:   5,
				BatchPause:  "12s",
				Timeout:     "30s",
			},
			Alpaca: AlpacaConfig{
				Feed: "iex",
			},
		},
		Screener: ScreenerConfig{
			RefreshInterval: "30s",
			RunTimeout:      "15m",
			Workers:         1,
			Criteria: CriteriaConfig{
				MaxPrice:            5.00,
				MinAbsChangePercent: 8,
				MinVolume:           1_000_000,
			},
		},
		News: NewsConfig{
			Topics:          []string{"technology", "financial_markets"},
			Limit:           10,
			RefreshInterval: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first; variables already set
// in the environment win.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SURGE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SURGE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("SURGE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SURGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("SURGE_REFRESH_INTERVAL"); v != "" {
		config.Screener.RefreshInterval = v
	}

	if v := os.Getenv("SURGE_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		config.Screener.Symbols = symbols
	}

	if v := os.Getenv("SURGE_ALPHA_VANTAGE_BASE_URL"); v != "" {
		config.Clients.AlphaVantage.BaseURL = v
	}

	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		config.Clients.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		config.Clients.Alpaca.APISecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or the configured fallback.
// An empty key with a non-nil error means the provider is not configured.
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"alphavantage_api_key": {"ALPHA_VANTAGE_API_KEY", "SURGE_ALPHA_VANTAGE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
