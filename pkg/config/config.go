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
// ⭐ SSOT: environment variables are read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	Database DatabaseConfig
	Redis    RedisConfig

	// External APIs
	Alpaca     AlpacaConfig
	MarketData MarketDataConfig

	// Core defaults, overridable per run
	Optimizer  OptimizerConfig
	MonteCarlo MonteCarloConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
// An empty URL disables persistence.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// AlpacaConfig holds brokerage API configuration
type AlpacaConfig struct {
	KeyID     string
	SecretKey string
	BaseURL   string // paper-api.alpaca.markets for paper trading
}

// MarketDataConfig holds price source configuration
type MarketDataConfig struct {
	YahooBaseURL   string
	RequestsPerSec int
	CacheTTL       time.Duration
	Workers        int
}

// OptimizerConfig holds efficient frontier defaults
type OptimizerConfig struct {
	Technique      string // max_sharpe, min_volatility, efficient_return
	RiskFreeRate   float64
	PeriodsPerYear int
	WeightCutoff   float64
	SolverTimeout  time.Duration
	MaxIterations  int
}

// MonteCarloConfig holds projection defaults
type MonteCarloConfig struct {
	TimeHorizon    int
	AnnualAddition float64
	Iterations     int
	Workers        int

	// request caps for the API; CLI runs are not limited
	MaxIterations  int
	MaxTimeHorizon int
}

// LoadFrom loads envFile into the environment, then reads configuration.
// Variables already set in the environment win over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return Load()
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only caller of os.Getenv
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Alpaca: AlpacaConfig{
			KeyID:     getEnv("ALPACA_API_KEY_ID", ""),
			SecretKey: getEnv("ALPACA_SECRET_KEY", ""),
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},

		MarketData: MarketDataConfig{
			YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestsPerSec: getEnvAsInt("MARKETDATA_RPS", 4),
			CacheTTL:       getEnvAsDuration("MARKETDATA_CACHE_TTL", "12h"),
			Workers:        getEnvAsInt("MARKETDATA_WORKERS", 4),
		},

		Optimizer: OptimizerConfig{
			Technique:      getEnv("OPTIMIZER_TECHNIQUE", "max_sharpe"),
			RiskFreeRate:   getEnvAsFloat("OPTIMIZER_RISK_FREE_RATE", 0.02),
			PeriodsPerYear: getEnvAsInt("OPTIMIZER_PERIODS_PER_YEAR", 252),
			WeightCutoff:   getEnvAsFloat("OPTIMIZER_WEIGHT_CUTOFF", 1e-4),
			SolverTimeout:  getEnvAsDuration("OPTIMIZER_SOLVER_TIMEOUT", "5s"),
			MaxIterations:  getEnvAsInt("OPTIMIZER_MAX_ITERATIONS", 1000),
		},

		MonteCarlo: MonteCarloConfig{
			TimeHorizon:    getEnvAsInt("MC_TIME_HORIZON", 5),
			AnnualAddition: getEnvAsFloat("MC_ANNUAL_ADDITION", 0),
			Iterations:     getEnvAsInt("MC_ITERATIONS", 300),
			Workers:        getEnvAsInt("MC_WORKERS", 0),
			MaxIterations:  getEnvAsInt("MC_MAX_ITERATIONS", 100000),
			MaxTimeHorizon: getEnvAsInt("MC_MAX_TIME_HORIZON", 100),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that configured values are usable
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.Optimizer.Technique {
	case "max_sharpe", "min_volatility", "efficient_return":
	default:
		return fmt.Errorf("OPTIMIZER_TECHNIQUE %q is not supported", c.Optimizer.Technique)
	}

	if c.Optimizer.PeriodsPerYear <= 0 {
		return fmt.Errorf("OPTIMIZER_PERIODS_PER_YEAR must be positive")
	}
	if c.Optimizer.WeightCutoff < 0 || c.Optimizer.WeightCutoff >= 1 {
		return fmt.Errorf("OPTIMIZER_WEIGHT_CUTOFF must be in [0, 1)")
	}
	if c.MonteCarlo.TimeHorizon < 1 {
		return fmt.Errorf("MC_TIME_HORIZON must be at least 1")
	}
	if c.MonteCarlo.Iterations < 1 {
		return fmt.Errorf("MC_ITERATIONS must be at least 1")
	}
	if c.MonteCarlo.MaxIterations < c.MonteCarlo.Iterations {
		return fmt.Errorf("MC_MAX_ITERATIONS must be at least MC_ITERATIONS")
	}
	if c.MonteCarlo.MaxTimeHorizon < c.MonteCarlo.TimeHorizon {
		return fmt.Errorf("MC_MAX_TIME_HORIZON must be at least MC_TIME_HORIZON")
	}
	if c.MonteCarlo.AnnualAddition < 0 {
		return fmt.Errorf("MC_ANNUAL_ADDITION must not be negative")
	}
	if c.MarketData.RequestsPerSec <= 0 {
		return fmt.Errorf("MARKETDATA_RPS must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
