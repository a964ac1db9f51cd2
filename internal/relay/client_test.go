package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/voxrelay/internal/metrics"
)

const testKey = "secret-key-123"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) (*Client, *recordingSleep) {
	t.Helper()
	rs := &recordingSleep{}
	opts = append([]Option{WithSleep(rs.sleep)}, opts...)
	c, err := NewClient(Config{
		APIKey:     testKey,
		BaseURL:    baseURL,
		Model:      "test-model",
		RetryLimit: 3,
		BaseDelay:  time.Second,
	}, newTestLogger(), opts...)
	require.NoError(t, err)
	return c, rs
}

func successBody(mime, data string) string {
	return `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"` + mime + `","data":"` + data + `"}}]}}]}`
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(Config{}, newTestLogger())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"}, newTestLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultRetryLimit, c.cfg.RetryLimit)
	assert.Equal(t, DefaultBaseDelay, c.cfg.BaseDelay)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, DefaultBaseURL+"/models/"+DefaultModel+":generateContent?key=k", c.endpoint)
}

func TestSend_Success(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, successBody("audio/L16;codec=pcm;rate=24000", "AAAA"))
	}))
	defer server.Close()

	c, rs := newTestClient(t, server.URL)
	resp, err := c.Send(context.Background(), NewPayload("Say this: hi", "Kore", "test-model"))
	require.NoError(t, err)

	assert.Equal(t, "AAAA", resp.AudioBase64)
	assert.Equal(t, "audio/L16;codec=pcm;rate=24000", resp.MimeType)
	assert.Empty(t, rs.delays)

	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, testKey, gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.Contains(t, gotBody, "contents")
	assert.Contains(t, gotBody, "generationConfig")
}

func TestSend_MissingAudioFieldsTolerated(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"no audio"}]}}]}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer server.Close()

			c, _ := newTestClient(t, server.URL)
			resp, err := c.Send(context.Background(), NewPayload("p", "v", "m"))
			require.NoError(t, err)
			assert.Empty(t, resp.AudioBase64)
			assert.Empty(t, resp.MimeType)
		})
	}
}

func TestSend_SkipsPartsWithoutInlineData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"x"},{"inlineData":{"mimeType":"audio/L16;rate=16000","data":"AQI="}}]}}]}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	resp, err := c.Send(context.Background(), NewPayload("p", "v", "m"))
	require.NoError(t, err)
	assert.Equal(t, "AQI=", resp.AudioBase64)
	assert.Equal(t, "audio/L16;rate=16000", resp.MimeType)
}

func TestSend_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	_, err := c.Send(context.Background(), NewPayload("p", "v", "m"))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestSend_RateLimitedExhausts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	m := metrics.New()
	c, rs := newTestClient(t, server.URL, WithMetrics(m))
	_, err := c.Send(context.Background(), NewPayload("p", "v", "m"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteExhausted)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rs.delays)

	expected := `
# HELP voxrelay_provider_retries_total Total retries scheduled against the speech provider
# TYPE voxrelay_provider_retries_total counter
voxrelay_provider_retries_total{reason="rate_limited"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "voxrelay_provider_retries_total"))
}

func TestSend_RateLimitedThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, successBody("audio/L16;rate=24000", "AAAA"))
	}))
	defer server.Close()

	c, rs := newTestClient(t, server.URL)
	resp, err := c.Send(context.Background(), NewPayload("p", "v", "m"))
	require.NoError(t, err)

	assert.Equal(t, "AAAA", resp.AudioBase64)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, []time.Duration{time.Second}, rs.delays)
}

func TestSend_RetryLimitOne(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	rs := &recordingSleep{}
	c, err := NewClient(Config{APIKey: testKey, BaseURL: server.URL, RetryLimit: 1}, newTestLogger(), WithSleep(rs.sleep))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), NewPayload("p", "v", "m"))
	assert.ErrorIs(t, err, ErrRemoteExhausted)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, rs.delays)
}

func TestSend_RejectedNotRetried(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantStatus  string
	}{
		{
			name:        "provider message",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			wantMessage: "API key not valid",
			wantStatus:  "INVALID_ARGUMENT",
		},
		{
			name:        "no envelope",
			status:      http.StatusInternalServerError,
			body:        `upstream exploded`,
			wantMessage: genericRejectMessage,
		},
		{
			name:        "empty message",
			status:      http.StatusForbidden,
			body:        `{"error":{"code":403,"status":"PERMISSION_DENIED"}}`,
			wantMessage: genericRejectMessage,
			wantStatus:  "PERMISSION_DENIED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c, rs := newTestClient(t, server.URL)
			_, err := c.Send(context.Background(), NewPayload("p", "v", "m"))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRemoteRejected)
			assert.NotErrorIs(t, err, ErrRemoteExhausted)

			var rejected *RejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.status, rejected.StatusCode)
			assert.Equal(t, tt.wantMessage, rejected.Message)
			assert.Equal(t, tt.wantStatus, rejected.Status)

			assert.Equal(t, int32(1), attempts.Load())
			assert.Empty(t, rs.delays)
		})
	}
}

func TestSend_TransportErrorRetriedAndRedacted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	c, rs := newTestClient(t, baseURL)
	_, err := c.Send(context.Background(), NewPayload("p", "v", "m"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteExhausted)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rs.delays)
	assert.NotContains(t, err.Error(), testKey)
	assert.Contains(t, err.Error(), "key=REDACTED")
}

func TestSend_KeyNeverLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := NewClient(Config{APIKey: testKey, BaseURL: baseURL, RetryLimit: 2}, logger,
		WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), NewPayload("p", "v", "m"))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "retrying")
	assert.NotContains(t, buf.String(), testKey)
}

func TestSend_ContextCancelledDuringBackoff(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c, err := NewClient(Config{APIKey: testKey, BaseURL: server.URL, RetryLimit: 5, BaseDelay: time.Hour}, newTestLogger())
	require.NoError(t, err)

	go func() {
		for attempts.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	start := time.Now()
	_, err = c.Send(ctx, NewPayload("p", "v", "m"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSend_ContextAlreadyCancelled(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, rs := newTestClient(t, server.URL)
	_, err := c.Send(ctx, NewPayload("p", "v", "m"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rs.delays)
	assert.Equal(t, int32(0), attempts.Load())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
