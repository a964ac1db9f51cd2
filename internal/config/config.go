package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// HTTP settings
	HTTPPort     int
	BearerToken  string
	WriteTimeout time.Duration

	// Provider settings
	GoogleAPIKey    string
	GeminiBaseURL   string
	GeminiModel     string
	ProviderTimeout time.Duration
	RetryLimit      int
	RetryBaseDelay  time.Duration

	// Speech settings
	DefaultVoice   string
	PromptLanguage string
	MaxTextLength  int

	// Inbound rate limiting (0 disables)
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	MetricsEnabled bool

	// Logging settings
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// HTTP settings
		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		BearerToken:  os.Getenv("BEARER_TOKEN"),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 5*time.Minute),

		// Provider settings
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		GeminiBaseURL:   getEnvString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:     getEnvString("GEMINI_MODEL", "gemini-2.5-flash-preview-tts"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		RetryLimit:      getEnvInt("RETRY_LIMIT", 3),
		RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY", time.Second),

		// Speech settings
		DefaultVoice:   getEnvString("DEFAULT_VOICE", "Achernar"),
		PromptLanguage: getEnvString("PROMPT_LANGUAGE", "en"),
		MaxTextLength:  getEnvInt("MAX_TEXT_LENGTH", 5000),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		// Logging settings
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.BearerToken == ""
}

// ProviderConfigured returns true if a provider credential is present.
// A missing key is not a load error: the server still starts and reports
// a configuration error per request.
func (c *Config) ProviderConfigured() bool {
	return c.GoogleAPIKey != ""
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}

	if c.GeminiBaseURL == "" {
		return errors.New("GEMINI_BASE_URL cannot be empty")
	}

	if c.GeminiModel == "" {
		return errors.New("GEMINI_MODEL cannot be empty")
	}

	if c.RetryLimit < 1 {
		return errors.New("RETRY_LIMIT must be at least 1")
	}

	if c.RetryBaseDelay <= 0 {
		return errors.New("RETRY_BASE_DELAY must be positive")
	}

	if c.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be positive")
	}

	if c.WriteTimeout <= 0 {
		return errors.New("WRITE_TIMEOUT must be positive")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must be non-negative")
	}

	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}

	validLanguages := map[string]bool{"en": true, "id": true}
	if !validLanguages[c.PromptLanguage] {
		return errors.New("PROMPT_LANGUAGE must be one of: en, id")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
