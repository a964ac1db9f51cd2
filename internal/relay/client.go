// Package relay sends speech requests to the remote generative speech API,
// retrying rate-limited and unreachable attempts with exponential backoff.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgnsrekt/voxrelay/internal/metrics"
)

// maxResponseBytes caps how much of a provider reply is read.
const maxResponseBytes = 128 << 20

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client is the resilient transport to the speech provider. It holds no
// per-call state and is safe for concurrent use.
type Client struct {
	cfg        Config
	endpoint   string
	redacted   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sleep      SleepFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing or proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records attempts and retries on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// NewClient creates a provider client. The credential is taken from cfg and
// never read from the environment.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()

	base := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(cfg.BaseURL, "/"), cfg.Model)

	c := &Client{
		cfg:      cfg,
		endpoint: base + "?" + url.Values{"key": {cfg.APIKey}}.Encode(),
		redacted: base + "?key=REDACTED",
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the provider model identifier requests are sent to.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Send posts payload to the provider. Transport failures and 429 responses
// are retried up to RetryLimit total attempts, waiting BaseDelay, then twice
// that, and so on. Any other response ends the loop: 2xx is decoded, the rest
// become a *RejectedError.
func (c *Client) Send(ctx context.Context, payload *Payload) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	delay := c.cfg.BaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, body)

		var reason string
		var cause error
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			reason, cause = metrics.ReasonTransportError, err
		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp.Body)
			reason, cause = metrics.ReasonRateLimited, errors.New("rate limited (429)")
		default:
			defer resp.Body.Close()
			return c.handleResponse(resp)
		}

		if attempt+1 >= c.cfg.RetryLimit {
			c.logger.Error("speech provider retries exhausted",
				"model", c.cfg.Model,
				"attempts", attempt+1,
				"error", cause,
			)
			return nil, fmt.Errorf("%w: %d attempts: %w", ErrRemoteExhausted, attempt+1, cause)
		}

		c.logger.Warn("speech provider call failed, retrying",
			"model", c.cfg.Model,
			"attempt", attempt+1,
			"reason", reason,
			"delay", delay,
			"error", cause,
		)
		c.metrics.RecordRetry(reason)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

// do performs one HTTP attempt. Transport errors have the credential
// stripped from the URL they carry.
func (c *Client) do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", c.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		c.metrics.RecordProviderAttempt(c.cfg.Model, 0, elapsed)
		return nil, fmt.Errorf("request failed: %w", c.redact(err))
	}

	c.metrics.RecordProviderAttempt(c.cfg.Model, resp.StatusCode, elapsed)
	c.logger.Debug("speech provider responded",
		"model", c.cfg.Model,
		"status", resp.StatusCode,
		"elapsed_s", elapsed,
	)
	return resp, nil
}

func (c *Client) handleResponse(resp *http.Response) (*Response, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", c.redact(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rejected := &RejectedError{StatusCode: resp.StatusCode, Message: genericRejectMessage}

		var envelope apiError
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
			rejected.Status = envelope.Error.Status
			if envelope.Error.Message != "" {
				rejected.Message = envelope.Error.Message
			}
		}

		c.logger.Error("speech provider rejected request",
			"model", c.cfg.Model,
			"status", resp.StatusCode,
			"provider_status", rejected.Status,
			"message", rejected.Message,
		)
		return nil, rejected
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return decoded.audio(), nil
}

// redact replaces the credential-bearing URL inside a *url.Error.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = c.redacted
	}
	return err
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

// sleepContext waits for d, returning early with ctx.Err() if ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
