package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
	SessionStoreSQLite = "sqlite"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL      string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string

	// Redis
	RedisURL      string
	RedisPassword string

	// Server
	Port string

	// Authentication
	JWTSecret string
	TokenTTL  time.Duration

	// Table sessions
	SessionJWTSecret     string
	SessionTTL           time.Duration
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration
	SessionStore         string
	SessionSQLitePath    string

	// Tables
	TableIdleTTL      time.Duration
	StartingChips     int64
	DefaultMinimumBet int64
}

func Load() *Config {
	return &Config{
		// Environment
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// Database
		DatabaseURL:      getEnvOrDefault("DATABASE_URL", ""),
		PostgresDB:       getEnvOrDefault("POSTGRES_DB", "holdem"),
		PostgresUser:     getEnvOrDefault("POSTGRES_USER", "holdem_user"),
		PostgresPassword: getEnvOrDefault("POSTGRES_PASSWORD", "holdem_password"),
		PostgresHost:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvOrDefault("POSTGRES_PORT", "5432"),

		// Redis
		RedisURL:      getEnvOrDefault("REDIS_URL", ""),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// Server
		Port: getEnvOrDefault("PORT", "8080"),

		// Authentication
		JWTSecret: getEnvOrDefault("JWT_SECRET", "holdem-secret-key-change-in-production"),
		TokenTTL:  getDurationOrDefault("TOKEN_TTL", 24*time.Hour),

		// Table sessions
		SessionJWTSecret:     getEnvOrDefault("SESSION_JWT_SECRET", "holdem-session-secret-change-in-production"),
		SessionTTL:           getDurationOrDefault("SESSION_TTL", 4*time.Hour),
		SessionIdleTTL:       getDurationOrDefault("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepInterval: getDurationOrDefault("SESSION_SWEEP_INTERVAL", time.Minute),
		SessionStore:         getEnvOrDefault("SESSION_STORE", SessionStoreMemory),
		SessionSQLitePath:    getEnvOrDefault("SESSION_SQLITE_PATH", "data/sessions.db"),

		// Tables
		TableIdleTTL:      getDurationOrDefault("TABLE_IDLE_TTL", 10*time.Minute),
		StartingChips:     getInt64OrDefault("STARTING_CHIPS", 1000),
		DefaultMinimumBet: getInt64OrDefault("DEFAULT_MINIMUM_BET", 10),
	}
}

func (c *Config) GetDatabaseURL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
	)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreSQLite:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("SESSION_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.JWTSecret == c.SessionJWTSecret {
		return fmt.Errorf("JWT_SECRET and SESSION_JWT_SECRET must differ")
	}
	if c.StartingChips <= 0 {
		return fmt.Errorf("STARTING_CHIPS must be positive")
	}
	if c.DefaultMinimumBet < 2 {
		return fmt.Errorf("DEFAULT_MINIMUM_BET must be at least 2")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("Ignoring invalid duration", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		slog.Warn("Ignoring invalid integer", "key", key, "value", value)
		return defaultValue
	}
	return n
}
