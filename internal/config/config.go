// Package config provides configuration management for the ledger engine and its binaries.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Gateway     GatewayConfig
	Quote       QuoteConfig
	Session     SessionConfig
	StubGateway StubGatewayConfig
	Logging     LoggingConfig
}

// GatewayConfig holds Remote Gateway client configuration
type GatewayConfig struct {
	BaseURL        string
	RateLimitRPS   float64
	RateLimitBurst int
	// HTTPTimeout of zero leaves request lifetime to the gateway's connection handling
	HTTPTimeout time.Duration
}

// QuoteConfig holds market quote configuration
type QuoteConfig struct {
	Category string
	Currency string
}

// SessionConfig holds the optional initial bearer credential
type SessionConfig struct {
	Token string
}

// StubGatewayConfig holds configuration for the local stub gateway
type StubGatewayConfig struct {
	Host string
	Port string
	// DemoEmail and DemoPassword seed a user at startup when both are set
	DemoEmail    string
	DemoPassword string
	// DefaultPassword is given to accounts created through /auth/register
	DefaultPassword string
	RateLimitRPS    float64
	RateLimitBurst  int
	TokenTTL        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Gateway: GatewayConfig{
			BaseURL:        strings.TrimRight(getEnv("GATEWAY_BASE_URL", "http://localhost:8000/api"), "/"),
			RateLimitRPS:   getEnvAsFloat("GATEWAY_RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvAsInt("GATEWAY_RATE_LIMIT_BURST", 10),
			HTTPTimeout:    getEnvAsDuration("GATEWAY_HTTP_TIMEOUT", 0),
		},
		Quote: QuoteConfig{
			Category: getEnv("QUOTE_CATEGORY", "spot"),
			Currency: strings.ToUpper(getEnv("QUOTE_CURRENCY", "USD")),
		},
		Session: SessionConfig{
			Token: getEnv("SESSION_TOKEN", ""),
		},
		StubGateway: StubGatewayConfig{
			Host: getEnv("STUB_GATEWAY_HOST", "0.0.0.0"),
			Port: getEnv("STUB_GATEWAY_PORT", "8000"),

			DemoEmail:       getEnv("STUB_GATEWAY_DEMO_EMAIL", ""),
			DemoPassword:    getEnv("STUB_GATEWAY_DEMO_PASSWORD", ""),
			DefaultPassword: getEnv("STUB_GATEWAY_DEFAULT_PASSWORD", "changeme"),
			RateLimitRPS:    getEnvAsFloat("STUB_GATEWAY_RATE_LIMIT_RPS", 0),
			RateLimitBurst:  getEnvAsInt("STUB_GATEWAY_RATE_LIMIT_BURST", 10),
			TokenTTL:        getEnvAsDuration("STUB_GATEWAY_TOKEN_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
