package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/voxrelay/internal/config"
	"github.com/dgnsrekt/voxrelay/internal/metrics"
	"github.com/dgnsrekt/voxrelay/internal/speech"
	"github.com/dgnsrekt/voxrelay/internal/tts"
)

// Synthesizer runs one speech request. *speech.Service implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, jobID string, req tts.SpeechRequest) (*speech.Result, error)
}

// Server handles HTTP API requests.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	speech  Synthesizer
	metrics *metrics.Metrics
	limiter *rateLimiter
}

// New creates a new API server. m may be nil, which also disables /metrics.
func New(cfg *config.Config, logger *slog.Logger, svc Synthesizer, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		speech:  svc,
		metrics: m,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)
	if s.cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)

	r.Get("/v1/healthz", s.handleHealthz)
	r.Get("/v1/voices", s.handleVoices)

	if s.cfg.MetricsEnabled && s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// Every method is routed here so non-POST gets the JSON 405 body.
	// The method check runs first and spends no rate-limit tokens.
	r.HandleFunc("/api/generate-speech",
		s.requirePost(s.withRateLimit(s.withAuth(s.handleGenerateSpeech))))

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
