package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration (optional shared cache backend)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Storage configuration
	Storage StorageConfig

	// Cache and cost configuration
	Cache CacheConfig
	Cost  CostConfig

	// Live feed configuration
	Feed FeedConfig
}

// DatabaseConfig holds PostgreSQL/TimescaleDB connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	// Connection pool
	MaxOpenConns int
	MaxIdleConns int

	// Statement timeout in milliseconds; a stalled connection surfaces
	// as an error instead of hanging
	StatementTimeoutMS int
}

// StorageConfig holds schema and lifecycle policy settings
type StorageConfig struct {
	// CompressionEnabled toggles columnar compression policies on hypertables
	CompressionEnabled bool

	// Per-entity retention overrides in days; 0 keeps the built-in horizon
	RetentionPlayerStatsDays int
	RetentionGameStatesDays  int
	RetentionPredictionsDays int
	RetentionOwnershipDays   int
	RetentionInjuriesDays    int
	RetentionWeatherDays     int
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	// Backend is "memory" (default, process-local) or "redis"
	Backend      string
	TTLSeconds   int
	MaxEntries   int
	SweepSeconds int

	// Strategy is "never", "always", or "smart"
	Strategy string

	// SmartFraction is the spend fraction above which the smart strategy
	// starts preferring cached results
	SmartFraction float64
}

// CostConfig holds query cost budget settings
type CostConfig struct {
	DailyLimit   float64
	MonthlyLimit float64
	BaseCost     float64
	PerRowCost   float64
	WarnFraction float64
}

// FeedConfig holds live data feed settings
type FeedConfig struct {
	Enabled      bool
	URL          string
	APIKey       string
	BatchSize    int
	FlushSeconds int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Database: DatabaseConfig{
			Host:               getEnvOrDefault("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnvOrDefault("DB_NAME", "gridiron_stats"),
			User:               getEnvOrDefault("DB_USER", "gridiron"),
			Password:           getEnvOrDefault("DB_PASSWORD", "gridiron123"),
			SSLMode:            getEnvOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			StatementTimeoutMS: getEnvInt("DB_STATEMENT_TIMEOUT_MS", 10000),
		},

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Storage: StorageConfig{
			CompressionEnabled:       getEnvOrDefault("COMPRESSION_ENABLED", "true") == "true",
			RetentionPlayerStatsDays: getEnvInt("RETENTION_PLAYER_STATS_DAYS", 0),
			RetentionGameStatesDays:  getEnvInt("RETENTION_GAME_STATES_DAYS", 0),
			RetentionPredictionsDays: getEnvInt("RETENTION_PREDICTIONS_DAYS", 0),
			RetentionOwnershipDays:   getEnvInt("RETENTION_OWNERSHIP_DAYS", 0),
			RetentionInjuriesDays:    getEnvInt("RETENTION_INJURIES_DAYS", 0),
			RetentionWeatherDays:     getEnvInt("RETENTION_WEATHER_DAYS", 0),
		},

		Cache: CacheConfig{
			Backend:       getEnvOrDefault("CACHE_BACKEND", "memory"),
			TTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 300),
			MaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 1000),
			SweepSeconds:  getEnvInt("CACHE_SWEEP_SECONDS", 60),
			Strategy:      getEnvOrDefault("CACHE_STRATEGY", "smart"),
			SmartFraction: getEnvFloat("CACHE_SMART_FRACTION", 0.70),
		},

		Cost: CostConfig{
			DailyLimit:   getEnvFloat("COST_DAILY_LIMIT", 10.0),
			MonthlyLimit: getEnvFloat("COST_MONTHLY_LIMIT", 250.0),
			BaseCost:     getEnvFloat("COST_BASE", 0.001),
			PerRowCost:   getEnvFloat("COST_PER_ROW", 0.00001),
			WarnFraction: getEnvFloat("COST_WARN_FRACTION", 0.80),
		},

		Feed: FeedConfig{
			Enabled:      getEnvOrDefault("FEED_ENABLED", "false") == "true",
			URL:          getEnvOrDefault("FEED_URL", "wss://feed.gridiron.local/ws"),
			APIKey:       getEnvOrDefault("FEED_API_KEY", ""),
			BatchSize:    getEnvInt("FEED_BATCH_SIZE", 200),
			FlushSeconds: getEnvInt("FEED_FLUSH_SECONDS", 5),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
