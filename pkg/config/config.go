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
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: result persistence is disabled when URL is empty)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External data providers
	SEC   SECConfig
	Stooq StooqConfig

	// Reference cache
	Cache CacheConfig

	// Strategy YAML path
	StrategyPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// SECConfig holds SEC EDGAR configuration
// SEC rejects requests without a descriptive User-Agent
type SECConfig struct {
	UserAgent string
	BaseURL   string // www.sec.gov (ticker directory, browse pages)
	DataURL   string // data.sec.gov (submissions)
	RateLimit int    // requests per second
}

// StooqConfig holds Stooq price history configuration
type StooqConfig struct {
	BaseURL   string
	RateLimit int
}

// CacheConfig holds the on-disk reference cache configuration
type CacheConfig struct {
	Dir    string
	MaxAge time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
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

		SEC: SECConfig{
			UserAgent: getEnv("SEC_USER_AGENT", ""),
			BaseURL:   getEnv("SEC_BASE_URL", "https://www.sec.gov"),
			DataURL:   getEnv("SEC_DATA_URL", "https://data.sec.gov"),
			RateLimit: getEnvAsInt("SEC_RATE_LIMIT", 6),
		},

		Stooq: StooqConfig{
			BaseURL:   getEnv("STOOQ_BASE_URL", "https://stooq.com"),
			RateLimit: getEnvAsInt("STOOQ_RATE_LIMIT", 5),
		},

		Cache: CacheConfig{
			Dir:    getEnv("CACHE_DIR", ".cache"),
			MaxAge: getEnvAsDuration("CACHE_MAX_AGE", "24h"),
		},

		StrategyPath: getEnv("STRATEGY_CONFIG", "config/strategy/catalyst_v1.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.SEC.UserAgent == "" {
		return fmt.Errorf("SEC_USER_AGENT is required (e.g. \"Research Bot admin@example.com\")")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.SEC.RateLimit <= 0 || c.SEC.RateLimit > 10 {
		return fmt.Errorf("SEC_RATE_LIMIT must be in [1, 10]")
	}

	if c.Stooq.RateLimit <= 0 {
		return fmt.Errorf("STOOQ_RATE_LIMIT must be > 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

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
