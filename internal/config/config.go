// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the collector.
type Config struct {
	// Polymarket Data API
	DataAPIURL     string
	RequestTimeout time.Duration

	// Pagination
	PageSize       int
	MaxRecords     int
	MaxOffset      int
	RateLimitDelay time.Duration

	// Quality filter
	MinTrades int

	// Files
	WalletFile string
	DataDir    string
	PlotsDir   string

	// Plotting
	PlotDPI int

	// UI
	EnableTUI bool

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DataAPIURL:     getEnv("POLYMARKET_DATA_API_URL", "https://data-api.polymarket.com"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		PageSize:       getEnvInt("PAGE_SIZE", 500),
		MaxRecords:     getEnvInt("MAX_RECORDS", 10000),
		MaxOffset:      getEnvInt("MAX_OFFSET", 10000),
		RateLimitDelay: time.Duration(getEnvInt("RATE_LIMIT_MS", 500)) * time.Millisecond,

		MinTrades: getEnvInt("MIN_TRADES", 30),

		WalletFile: getEnv("WALLET_FILE", "./wallets.txt"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		PlotsDir:   getEnv("PLOTS_DIR", "./plots"),

		PlotDPI: getEnvInt("PLOT_DPI", 150),

		EnableTUI: getEnvBool("ENABLE_TUI", true),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  getEnv("LOG_FILE", "./collector.log"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in defaults without reading the environment.
func Default() *Config {
	return &Config{
		DataAPIURL:     "https://data-api.polymarket.com",
		RequestTimeout: 30 * time.Second,
		PageSize:       500,
		MaxRecords:     10000,
		MaxOffset:      10000,
		RateLimitDelay: 500 * time.Millisecond,
		MinTrades:      30,
		WalletFile:     "./wallets.txt",
		DataDir:        "./data",
		PlotsDir:       "./plots",
		PlotDPI:        150,
		EnableTUI:      true,
		LogLevel:       "INFO",
		LogFile:        "./collector.log",
	}
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.DataAPIURL == "" {
		return fmt.Errorf("POLYMARKET_DATA_API_URL is required")
	}

	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be at least 1")
	}

	if c.MaxRecords < 1 {
		return fmt.Errorf("MAX_RECORDS must be at least 1")
	}

	if c.MaxOffset < 0 {
		return fmt.Errorf("MAX_OFFSET must not be negative")
	}

	if c.RateLimitDelay < 0 {
		return fmt.Errorf("RATE_LIMIT_MS must not be negative")
	}

	if c.MinTrades < 1 {
		return fmt.Errorf("MIN_TRADES must be at least 1")
	}

	if c.DataDir == "" || c.PlotsDir == "" || c.WalletFile == "" {
		return fmt.Errorf("DATA_DIR, PLOTS_DIR and WALLET_FILE are required")
	}

	if c.PlotDPI < 1 {
		return fmt.Errorf("PLOT_DPI must be at least 1")
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
