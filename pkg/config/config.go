package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Evaluation engine
	Engine EngineConfig

	// Market data feed
	Feed FeedConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// EngineConfig holds the evaluation engine constants.
// These are policy values shared by all payoff templates; they are
// configuration, never hard-coded per template.
type EngineConfig struct {
	// NearBarrierBand is the relative distance to a protection barrier below
	// which barrier status degrades from "safe" to "near" (0.05 = 5%).
	NearBarrierBand float64

	// DayCountBasis is the denominator for rebate proration (ACT/365F).
	DayCountBasis float64

	// RebateAccrualStart selects the date a per-annum rebate accrues from:
	// "value_date" or "trade_date".
	RebateAccrualStart string

	// DefaultLossFormula applies when a product does not specify its own
	// loss-participation formula: "linear" or "worst_of".
	DefaultLossFormula string

	// ResultCacheTTL bounds how long an evaluation result may be served from
	// the orchestrator-boundary cache.
	ResultCacheTTL time.Duration
}

// FeedConfig holds the external close-price feed configuration
type FeedConfig struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	Timeout        time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "noteval"),
			User:            getEnv("DB_USER", "noteval"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Engine
		Engine: EngineConfig{
			NearBarrierBand:    getEnvAsFloat("ENGINE_NEAR_BARRIER_BAND", 0.05),
			DayCountBasis:      getEnvAsFloat("ENGINE_DAY_COUNT_BASIS", 365),
			RebateAccrualStart: getEnv("ENGINE_REBATE_ACCRUAL_START", "value_date"),
			DefaultLossFormula: getEnv("ENGINE_DEFAULT_LOSS_FORMULA", "linear"),
			ResultCacheTTL:     getEnvAsDuration("ENGINE_RESULT_CACHE_TTL", "15m"),
		},

		// Feed
		Feed: FeedConfig{
			BaseURL:        getEnv("FEED_BASE_URL", "https://quotes.example.com/api"),
			APIKey:         getEnv("FEED_API_KEY", ""),
			RequestsPerSec: getEnvAsFloat("FEED_REQUESTS_PER_SEC", 5),
			Timeout:        getEnvAsDuration("FEED_TIMEOUT", "30s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.NearBarrierBand < 0 || c.Engine.NearBarrierBand > 1 {
		return fmt.Errorf("ENGINE_NEAR_BARRIER_BAND must be between 0 and 1")
	}

	if c.Engine.DayCountBasis <= 0 {
		return fmt.Errorf("ENGINE_DAY_COUNT_BASIS must be positive")
	}

	if c.Engine.RebateAccrualStart != "value_date" && c.Engine.RebateAccrualStart != "trade_date" {
		return fmt.Errorf("ENGINE_REBATE_ACCRUAL_START must be one of: value_date, trade_date")
	}

	if c.Engine.DefaultLossFormula != "linear" && c.Engine.DefaultLossFormula != "worst_of" {
		return fmt.Errorf("ENGINE_DEFAULT_LOSS_FORMULA must be one of: linear, worst_of")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
