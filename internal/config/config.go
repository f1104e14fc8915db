// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string   // Base directory for the history database (always absolute)
	Assets         []string // Default asset universe
	Lookback       string   // Price window, e.g. "2y"
	NumTrials      int
	PeriodsPerYear int
	Seed           *uint64 // nil draws a fresh seed per run
	Workers        int     // 0 uses one worker per CPU
	BatchSize      int
	PricesCSV      string // Long-format price file; takes precedence over HistoryDB
	HistoryDB      string
	LogLevel       string
	Port           int
	DevMode        bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("FRONTIER_DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	seed, err := getEnvAsUint64Ptr("FRONTIER_SEED")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Assets:         getEnvAsList("FRONTIER_ASSETS", []string{"AAPL", "MSFT", "GOOG", "AMZN"}),
		Lookback:       getEnv("FRONTIER_LOOKBACK", "2y"),
		NumTrials:      getEnvAsInt("FRONTIER_NUM_TRIALS", 10000),
		PeriodsPerYear: getEnvAsInt("FRONTIER_PERIODS_PER_YEAR", 252),
		Seed:           seed,
		Workers:        getEnvAsInt("FRONTIER_WORKERS", 0),
		BatchSize:      getEnvAsInt("FRONTIER_BATCH_SIZE", 512),
		PricesCSV:      getEnv("FRONTIER_PRICES_CSV", ""),
		HistoryDB:      getEnv("FRONTIER_HISTORY_DB", filepath.Join(absDataDir, "history.db")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("GO_PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that numeric settings are usable
func (c *Config) Validate() error {
	if c.NumTrials <= 0 {
		return fmt.Errorf("FRONTIER_NUM_TRIALS must be positive, got %d", c.NumTrials)
	}
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("FRONTIER_PERIODS_PER_YEAR must be positive, got %d", c.PeriodsPerYear)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("FRONTIER_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("FRONTIER_WORKERS must not be negative, got %d", c.Workers)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT out of range: %d", c.Port)
	}
	return nil
}

// UsesCSV reports whether prices come from a CSV file rather than the history database
func (c *Config) UsesCSV() bool {
	return c.PricesCSV != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, trimming blanks
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return SplitList(value)
}

// getEnvAsUint64Ptr returns nil when the variable is unset. Unlike the other
// helpers a malformed value is an error.
func getEnvAsUint64Ptr(key string) (*uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return &v, nil
}

// SplitList parses a comma-separated list such as "AAPL, MSFT,GOOG"
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
