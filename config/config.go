package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cryptoSpotBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration. It is created once at startup
// and never mutated afterwards.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	TradingPair       string
	BaseAsset         string
	QuoteAsset        string
	TradingPercentage float64 // percentage of quote balance deployed per entry, (0, 100]
	StopLossPct       float64 // stop-loss percentage (e.g. 1.0 for 1%)
	TakeProfitPct     float64 // take-profit percentage (e.g. 1.0 for 1%)
	CandleInterval    string  // e.g. "1h"
	CandleLimit       int     // candles fetched per cycle
	DustThreshold     decimal.Decimal

	// Loop timing
	CycleInterval time.Duration // pause between trading cycles
	ErrorCooldown time.Duration // pause after a failed cycle

	// Retry settings for exchange calls
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
	LogFile  string // optional rotated audit log file

	// Metrics
	MetricsAddr string // optional Prometheus listen address, e.g. ":9090"
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_SECRET_KEY", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_SECRET_KEY must be set")
	}

	// Trading Parameters
	cfg.TradingPair = getEnv("TRADING_PAIR", "BTCUSDC")
	cfg.BaseAsset = getEnv("BASE_ASSET", "BTC")
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDC")
	if cfg.TradingPair == "" || cfg.BaseAsset == "" || cfg.QuoteAsset == "" {
		errs = append(errs, "TRADING_PAIR, BASE_ASSET and QUOTE_ASSET must be set")
	}

	cfg.TradingPercentage, err = getEnvAsFloatRequired("TRADING_PERCENTAGE", 95)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADING_PERCENTAGE: %v", err))
	} else if cfg.TradingPercentage <= 0 || cfg.TradingPercentage > 100 {
		errs = append(errs, "TRADING_PERCENTAGE must be in (0, 100]")
	}

	cfg.StopLossPct, err = getEnvAsFloatRequired("STOP_LOSS", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS: %v", err))
	} else if cfg.StopLossPct <= 0 {
		errs = append(errs, "STOP_LOSS must be positive")
	}

	cfg.TakeProfitPct, err = getEnvAsFloatRequired("TAKE_PROFIT", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT: %v", err))
	} else if cfg.TakeProfitPct <= 0 {
		errs = append(errs, "TAKE_PROFIT must be positive")
	}

	cfg.CandleInterval = getEnv("CANDLE_INTERVAL", "1h")
	if cfg.CandleInterval == "" {
		errs = append(errs, "CANDLE_INTERVAL must be set")
	}

	cfg.CandleLimit = getEnvAsInt("CANDLE_LIMIT", 500)
	if cfg.CandleLimit < 2 {
		errs = append(errs, "CANDLE_LIMIT must be at least 2")
	}

	dustStr := getEnv("DUST_THRESHOLD", "0.001")
	cfg.DustThreshold, err = decimal.NewFromString(dustStr)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DUST_THRESHOLD '%s': %v", dustStr, err))
	} else if cfg.DustThreshold.Sign() < 0 {
		errs = append(errs, "DUST_THRESHOLD cannot be negative")
	}

	// Loop timing
	cycleSeconds := getEnvAsInt("CYCLE_INTERVAL_SECONDS", 2)
	if cycleSeconds <= 0 {
		errs = append(errs, "CYCLE_INTERVAL_SECONDS must be positive")
	}
	cfg.CycleInterval = time.Duration(cycleSeconds) * time.Second

	cooldownSeconds := getEnvAsInt("ERROR_COOLDOWN_SECONDS", 10)
	if cooldownSeconds <= 0 {
		errs = append(errs, "ERROR_COOLDOWN_SECONDS must be positive")
	}
	cfg.ErrorCooldown = time.Duration(cooldownSeconds) * time.Second

	// Retry settings
	cfg.RetryMaxAttempts = getEnvAsInt("RETRY_MAX_ATTEMPTS", 5)
	if cfg.RetryMaxAttempts <= 0 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must be positive")
	}
	retryDelaySeconds := getEnvAsInt("RETRY_INITIAL_DELAY_SECONDS", 10)
	if retryDelaySeconds <= 0 {
		errs = append(errs, "RETRY_INITIAL_DELAY_SECONDS must be positive")
	}
	cfg.RetryInitialDelay = time.Duration(retryDelaySeconds) * time.Second

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/spot_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Metrics
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

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

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
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
