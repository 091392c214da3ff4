package config

import (
	"fmt"
	"os"
	"strconv"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all application configuration
// Fields are private to ensure immutability after creation
type Config struct {
	// Redis configuration
	redisHost string
	redisPort int

	// PostgreSQL configuration
	pgHost     string
	pgPort     int
	pgDatabase string
	pgUser     string
	pgPassword string

	// Logging configuration
	logLevel LogLevel
	logFile  string
}

// LoadFromEnv loads configuration from environment variables.
// Redis host, log level and log file are required; the PostgreSQL
// settings fall back to local development defaults.
func LoadFromEnv() (*Config, error) {
	config := &Config{
		redisPort:  6379, // Standard Redis port
		pgHost:     "localhost",
		pgPort:     5432, // Standard PostgreSQL port
		pgDatabase: "rediscomparison",
		pgUser:     "postgres",
		pgPassword: "postgrespass",
	}

	// Redis configuration
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil, fmt.Errorf("REDIS_HOST environment variable is required")
	}
	config.redisHost = host

	if portStr := os.Getenv("REDIS_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		config.redisPort = port
	}

	// PostgreSQL configuration
	if host := os.Getenv("PG_HOST"); host != "" {
		config.pgHost = host
	}
	if portStr := os.Getenv("PG_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PG_PORT: %w", err)
		}
		config.pgPort = port
	}
	if db := os.Getenv("PG_DATABASE"); db != "" {
		config.pgDatabase = db
	}
	if user := os.Getenv("PG_USER"); user != "" {
		config.pgUser = user
	}
	if password := os.Getenv("PG_PASSWORD"); password != "" {
		config.pgPassword = password
	}

	// Logging configuration
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		return nil, fmt.Errorf("LOG_LEVEL environment variable is required")
	}
	logLevel := LogLevel(levelStr)
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %s (valid: debug, info, warn, error)", levelStr)
	}
	config.logLevel = logLevel

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		return nil, fmt.Errorf("LOG_FILE environment variable is required")
	}
	config.logFile = logFile

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.redisHost == "" {
		return fmt.Errorf("redis host cannot be empty")
	}

	if c.redisPort <= 0 || c.redisPort > 65535 {
		return fmt.Errorf("invalid redis port: %d", c.redisPort)
	}

	if c.pgHost == "" {
		return fmt.Errorf("postgres host cannot be empty")
	}

	if c.pgPort <= 0 || c.pgPort > 65535 {
		return fmt.Errorf("invalid postgres port: %d", c.pgPort)
	}

	if c.pgDatabase == "" {
		return fmt.Errorf("postgres database cannot be empty")
	}

	if c.pgUser == "" {
		return fmt.Errorf("postgres user cannot be empty")
	}

	if !isValidLogLevel(c.logLevel) {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.logLevel)
	}

	if c.logFile == "" {
		return fmt.Errorf("log file path cannot be empty")
	}

	return nil
}

// GetRedisAddr returns the Redis address in host:port format
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.redisHost, c.redisPort)
}

// GetPostgresDSN returns the PostgreSQL connection string
func (c *Config) GetPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.pgUser, c.pgPassword, c.pgHost, c.pgPort, c.pgDatabase)
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() LogLevel {
	return c.logLevel
}

// GetLogFile returns the log file path
func (c *Config) GetLogFile() string {
	return c.logFile
}

// IsDebugEnabled returns true if debug logging is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.logLevel == LogLevelDebug
}

// Helper function to validate log levels
func isValidLogLevel(level LogLevel) bool {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}
