// Package config provides application configuration management using environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Discord    DiscordConfig
	Database   DatabaseConfig
	Moderation ModerationConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds the liveness endpoints configuration
type ServerConfig struct {
	HealthPort string
	GRPCPort   string
	Env        string
}

// DiscordConfig holds the bot credentials
type DiscordConfig struct {
	BotToken string
	// AppID defaults to the logged in bot user when empty
	AppID string
	// CommandGuildID registers slash commands on a single guild instead of globally
	CommandGuildID string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// ModerationConfig holds the background moderation jobs configuration
type ModerationConfig struct {
	MuteSweepInterval time.Duration
}

// RateLimitConfig holds the per-member command throttle
type RateLimitConfig struct {
	CommandsPerSecond float64
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
// It optionally loads from a .env file if it exists
func Load() (*Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server = ServerConfig{
		HealthPort: getEnv("HEALTH_CHECK_PORT", "8080"),
		GRPCPort:   getEnv("GRPC_PORT", "50051"),
		Env:        getEnv("ENVIRONMENT", "development"),
	}

	cfg.Discord = DiscordConfig{
		BotToken:       getEnv("DISCORD_BOT_TOKEN", ""),
		AppID:          getEnv("DISCORD_APP_ID", ""),
		CommandGuildID: getEnv("DISCORD_COMMAND_GUILD_ID", ""),
	}

	maxOpenConns, err := getEnvInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}
	maxIdleConns, err := getEnvInt("DB_MAX_IDLE_CONNS", 2)
	if err != nil {
		return nil, err
	}

	cfg.Database = DatabaseConfig{
		URL:          getEnv("DATABASE_URL", ""),
		Host:         getEnv("DB_HOST", "localhost"),
		Port:         getEnv("DB_PORT", "5432"),
		User:         getEnv("DB_USER", "clanwarden"),
		Password:     getEnv("DB_PASSWORD", ""),
		Name:         getEnv("DB_NAME", "clanwarden"),
		SSLMode:      getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns: maxOpenConns,
		MaxIdleConns: maxIdleConns,
	}

	sweepMinutes, err := getEnvInt("MUTE_SWEEP_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.Moderation = ModerationConfig{
		MuteSweepInterval: time.Duration(sweepMinutes) * time.Minute,
	}

	rps, err := strconv.ParseFloat(getEnv("COMMAND_RATE_PER_SECOND", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMAND_RATE_PER_SECOND: %w", err)
	}
	burst, err := getEnvInt("COMMAND_RATE_BURST", 5)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = RateLimitConfig{
		CommandsPerSecond: rps,
		Burst:             burst,
	}

	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	// DATABASE_URL carries its own credentials
	if c.Database.URL == "" {
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when DATABASE_URL is not set")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive")
	}

	if c.Moderation.MuteSweepInterval <= 0 {
		return fmt.Errorf("MUTE_SWEEP_INTERVAL_MINUTES must be positive")
	}

	if c.RateLimit.CommandsPerSecond <= 0 {
		return fmt.Errorf("COMMAND_RATE_PER_SECOND must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("COMMAND_RATE_BURST must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer: %w", key, err)
	}
	return n, nil
}
