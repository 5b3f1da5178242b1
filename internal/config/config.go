// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible settings store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// OpenRouter chat-completion access
	OpenRouterKey     string
	OpenRouterBaseURL string
	ModelOutline      string // model used for the outline/plan stage
	ModelBody         string // model used for the full-article stage

	// Image generation providers
	ImageProvider string // "stability" or "leonardo"
	StabilityKey  string
	LeonardoKey   string

	// Image conversion service (cmd/webpconvert)
	ConverterURL string

	// WordPress target. These seed the settings store; runtime changes made
	// through the settings API take precedence.
	WordPressURL      string
	WordPressUser     string
	WordPressPassword string
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "recipepress"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "recipepress"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		OpenRouterKey:     os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: envOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		ModelOutline:      envOrDefault("MODEL_OUTLINE", "openrouter/auto"),
		ModelBody:         envOrDefault("MODEL_BODY", "openrouter/auto"),

		ImageProvider: envOrDefault("IMAGE_PROVIDER", "stability"),
		StabilityKey:  os.Getenv("STABILITY_API_KEY"),
		LeonardoKey:   os.Getenv("LEONARDO_API_KEY"),

		ConverterURL: envOrDefault("CONVERTER_URL", "http://localhost:3001"),

		WordPressURL:      os.Getenv("WORDPRESS_URL"),
		WordPressUser:     os.Getenv("WORDPRESS_USER"),
		WordPressPassword: os.Getenv("WORDPRESS_APP_PASSWORD"),
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
