package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"housefund/internal/backend"
	"housefund/internal/core"
	"housefund/internal/store"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Redis
	RedisURL string

	// SQLite
	SQLiteDBPath string

	// Postgres
	PostgresDSN string

	// AMQP (optional; empty URL disables pledge events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Fund
	FundTarget    string
	PledgeWindow  time.Duration
	StartDateMode string

	// Storage behavior
	StorageTimeout time.Duration
	SubmitRetries  int
	ReadFallback   bool

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/housefund.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "housefund"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "pledge_events"),

		FundTarget:    getEnv("FUND_TARGET", "120"),
		PledgeWindow:  getEnvDuration("PLEDGE_WINDOW", 14*24*time.Hour),
		StartDateMode: getEnv("START_DATE_MODE", "window-ago"),

		StorageTimeout: getEnvDuration("STORAGE_TIMEOUT", 5*time.Second),
		SubmitRetries:  getEnvInt("SUBMIT_RETRIES", 3),
		ReadFallback:   getEnvBool("READ_FALLBACK", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !backend.Type(c.DataBackend).IsValid() {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory redis sqlite postgres]", c.DataBackend))
	}

	// Validate backend-specific settings
	switch backend.Type(c.DataBackend) {
	case backend.Redis:
		if parsed, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsed.Scheme))
		}
	case backend.SQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case backend.Postgres:
		if c.PostgresDSN == "" {
			errors = append(errors, "Postgres DSN cannot be empty when using postgres backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate fund target: must parse to a positive amount. A broken
	// target is fatal here rather than per-request.
	if _, err := core.ParseDecimalToCents(c.FundTarget); err != nil {
		errors = append(errors, fmt.Sprintf("invalid fund target '%s': must be a positive decimal amount", c.FundTarget))
	}

	if c.PledgeWindow < time.Hour {
		errors = append(errors, fmt.Sprintf("invalid pledge window %v: must be at least 1 hour", c.PledgeWindow))
	}

	switch store.StartDateMode(c.StartDateMode) {
	case store.StartNow, store.StartWindowAgo:
	default:
		errors = append(errors, fmt.Sprintf("invalid start date mode '%s': must be 'now' or 'window-ago'", c.StartDateMode))
	}

	if c.StorageTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid storage timeout %v: must be at least 100ms", c.StorageTimeout))
	} else if c.StorageTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid storage timeout %v: must be at most 1 minute", c.StorageTimeout))
	}

	if c.SubmitRetries < 1 || c.SubmitRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid submit retries %d: must be between 1 and 10", c.SubmitRetries))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Target returns the fund ceiling in cents. Call Validate first; an
// unparseable target yields zero here.
func (c *Config) Target() core.Money {
	cents, err := core.ParseDecimalToCents(c.FundTarget)
	if err != nil {
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

// BackendConfig maps the app config onto backend factory config.
func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		Type:         backend.Type(c.DataBackend),
		RedisURL:     c.RedisURL,
		SQLiteDBPath: c.SQLiteDBPath,
		PostgresDSN:  c.PostgresDSN,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
