package relay

import (
	"errors"
	"time"
)

// Defaults applied by NewClient to zero-valued Config fields.
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel      = "gemini-2.5-flash-preview-tts"
	DefaultRetryLimit = 3
	DefaultBaseDelay  = time.Second
	DefaultTimeout    = 60 * time.Second
)

// ErrMissingAPIKey is returned when the provider credential is not configured.
var ErrMissingAPIKey = errors.New("speech provider API key is not configured")

// Config holds the provider endpoint, credential and retry budget.
type Config struct {
	// APIKey is sent as the "key" query parameter. It is never logged.
	APIKey string

	BaseURL string
	Model   string

	// RetryLimit is the total number of attempts, including the first.
	RetryLimit int
	// BaseDelay is the wait before the first retry; it doubles on every retry.
	BaseDelay time.Duration
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.RetryLimit < 1 {
		c.RetryLimit = DefaultRetryLimit
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
