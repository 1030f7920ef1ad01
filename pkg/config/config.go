package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration for the appraisal service
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Engine inputs
	Engine EngineConfig

	// Database (optional, persistence is disabled when URL is empty)
	Database DatabaseConfig

	// Redis (optional appraisal cache)
	Redis RedisConfig

	// NATS (optional appraisal notifications)
	NATS NATSConfig

	// API
	API APIConfig

	// Batch / scheduler
	BatchWorkers    int
	RevalueSchedule string
	RevalueLimit    int

	// Logging
	LogLevel  string
	LogFormat string
}

// EngineConfig holds where coefficient tables live and which named variants to use
type EngineConfig struct {
	CoefficientDir  string
	CalibrationPath string // optional
	LoanProfile     string // standard, conservative
	GradeScheme     string // three_band, two_band
	AsOfYear        int    // 0 = current year
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
	TTL      time.Duration
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL     string
	Subject string
}

// Enabled reports whether notifications are configured
func (n NATSConfig) Enabled() bool {
	return n.URL != ""
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	RateLimit    float64 // requests per second
	RateBurst    int
	MaxBatchSize int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Engine: EngineConfig{
			CoefficientDir:  getEnv("COEFFICIENT_DIR", "config/coefficients"),
			CalibrationPath: getEnv("CALIBRATION_PATH", ""),
			LoanProfile:     getEnv("LOAN_PROFILE", "standard"),
			GradeScheme:     getEnv("GRADE_SCHEME", "three_band"),
			AsOfYear:        getEnvAsInt("AS_OF_YEAR", 0),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
		},

		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_SUBJECT", "kantei.appraisal.completed"),
		},

		API: APIConfig{
			RateLimit:    getEnvAsFloat("API_RATE_LIMIT", 20),
			RateBurst:    getEnvAsInt("API_RATE_BURST", 40),
			MaxBatchSize: getEnvAsInt("API_MAX_BATCH_SIZE", 500),
		},

		BatchWorkers:    getEnvAsInt("BATCH_WORKERS", 4),
		RevalueSchedule: getEnv("REVALUE_SCHEDULE", "0 0 5 * * *"),
		RevalueLimit:    getEnvAsInt("REVALUE_LIMIT", 1000),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.CoefficientDir == "" {
		return fmt.Errorf("COEFFICIENT_DIR is required")
	}

	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be >= 1")
	}

	if c.API.RateLimit <= 0 || c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_LIMIT must be > 0 and API_RATE_BURST >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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
