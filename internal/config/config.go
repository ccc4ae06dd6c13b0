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
	// APIBaseURL is the root of the accounting backend's REST API,
	// e.g. "https://accounts.example.co.uk". The single required value.
	APIBaseURL string

	DataDir  string // Base directory for the response cache database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Monitoring
	PollSchedule string   // cron schedule for the reconciliation poll
	BankAccounts []string // bank account codes to reconcile, comma-separated in env

	// Tolerance overrides per currency, e.g. "JPY=1,KWD=0.005".
	// GBP defaults to 0.01 and needs no entry.
	ToleranceOverrides map[string]string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("LEDGERLENS_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		APIBaseURL:         getEnv("LEDGERLENS_API_URL", ""),
		DataDir:            absDataDir,
		Port:               getEnvAsInt("LEDGERLENS_PORT", 8090),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		PollSchedule:       getEnv("LEDGERLENS_POLL_SCHEDULE", "@every 60s"),
		BankAccounts:       splitList(getEnv("LEDGERLENS_BANK_ACCOUNTS", "")),
		ToleranceOverrides: parsePairs(getEnv("LEDGERLENS_TOLERANCES", "")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("LEDGERLENS_API_URL is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("LEDGERLENS_API_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parsePairs parses "KEY=value,KEY=value" env values into a map.
func parsePairs(value string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(value, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] != "" {
			out[strings.ToUpper(kv[0])] = kv[1]
		}
	}
	return out
}
