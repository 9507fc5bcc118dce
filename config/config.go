package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Safety gate
	ControlStatePath string // persisted control-state JSON document
	KillSwitchPath   string // presence of this file vetoes all order dispatch

	// Audit
	AuditDBPath string

	// Venue API (crypto session adapter)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Dispatch
	DispatchWorkers   int           // bounded pool for blocking broker calls
	BrokerCallTimeout time.Duration // per-call deadline on venue operations

	// Instruments
	BaseCurrency string // default currency applied to bare symbol specs

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // "text" (stdlib) or "json" (zap)
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Safety gate paths
	cfg.ControlStatePath = getEnv("CONTROL_STATE_PATH", "./data/trading_control.json")
	if cfg.ControlStatePath == "" {
		errs = append(errs, "CONTROL_STATE_PATH must be set")
	}
	cfg.KillSwitchPath = getEnv("KILL_SWITCH_PATH", "./data/KILL_SWITCH")
	if cfg.KillSwitchPath == "" {
		errs = append(errs, "KILL_SWITCH_PATH must be set")
	}

	// Audit
	cfg.AuditDBPath = getEnv("AUDIT_DB_PATH", "./data/gateway_audit.db")
	if cfg.AuditDBPath == "" {
		errs = append(errs, "AUDIT_DB_PATH must be set")
	}

	// Venue API. Keys may be empty for offline/simulated runs.
	cfg.APIKey = getEnv("VENUE_API_KEY", "")
	cfg.SecretKey = getEnv("VENUE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Dispatch
	cfg.DispatchWorkers, err = getEnvAsIntRequired("DISPATCH_WORKERS", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DISPATCH_WORKERS: %v", err))
	} else if cfg.DispatchWorkers <= 0 {
		errs = append(errs, "DISPATCH_WORKERS must be positive")
	}

	timeoutSeconds := getEnvAsInt("BROKER_CALL_TIMEOUT_SECONDS", 15)
	if timeoutSeconds <= 0 {
		errs = append(errs, "BROKER_CALL_TIMEOUT_SECONDS must be positive")
	}
	cfg.BrokerCallTimeout = time.Duration(timeoutSeconds) * time.Second

	// Instruments
	cfg.BaseCurrency = strings.ToUpper(getEnv("BASE_CURRENCY", "USD"))
	if len(cfg.BaseCurrency) != 3 {
		errs = append(errs, "BASE_CURRENCY must be a 3-letter ISO code")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be 'text' or 'json'")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
