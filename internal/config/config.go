// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for the database file (always absolute)
	Port    int
	DevMode bool
	LogLevel string

	// Write suppression tolerances. Deltas at or below the tolerance are not
	// persisted (strict inequality triggers a write).
	PriceTolerance float64 // Absolute price delta in currency units
	PctTolerance   float64 // Absolute day-change delta in percentage points

	// AlertThresholdPercent is the global default; owners can override it
	// via the per-owner settings table.
	AlertThresholdPercent float64

	ReferenceCacheTTL  time.Duration // Crypto asset-list cache TTL
	ServerPassInterval time.Duration // Centralized all-owners sync interval
	ClientPassInterval time.Duration // Per-session poller interval
	ProviderTimeout    time.Duration // Per-holding fetch timeout
	SyncMaxConcurrent  int           // Bounded fan-out within a pass

	FinnhubAPIKey    string
	FinnhubBaseURL   string
	CoingeckoBaseURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PriceTolerance:        getEnvAsFloat("PRICE_TOLERANCE", 0.001),
		PctTolerance:          getEnvAsFloat("PCT_TOLERANCE", 0.01),
		AlertThresholdPercent: getEnvAsFloat("ALERT_THRESHOLD_PERCENT", 5),

		ReferenceCacheTTL:  getEnvAsDuration("REFERENCE_CACHE_TTL", 24*time.Hour),
		ServerPassInterval: getEnvAsDuration("SERVER_PASS_INTERVAL", 5*time.Minute),
		ClientPassInterval: getEnvAsDuration("CLIENT_PASS_INTERVAL", 30*time.Second),
		ProviderTimeout:    getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		SyncMaxConcurrent:  getEnvAsInt("SYNC_MAX_CONCURRENT", 8),

		FinnhubAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:   getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		CoingeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.PriceTolerance < 0 {
		return fmt.Errorf("PRICE_TOLERANCE must be >= 0, got %f", c.PriceTolerance)
	}
	if c.PctTolerance < 0 {
		return fmt.Errorf("PCT_TOLERANCE must be >= 0, got %f", c.PctTolerance)
	}
	if c.SyncMaxConcurrent < 1 {
		return fmt.Errorf("SYNC_MAX_CONCURRENT must be >= 1, got %d", c.SyncMaxConcurrent)
	}
	if c.ServerPassInterval <= 0 || c.ClientPassInterval <= 0 {
		return fmt.Errorf("pass intervals must be positive")
	}

	// Note: Finnhub API key optional - equity holdings are skipped without it
	return nil
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
