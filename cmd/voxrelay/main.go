package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/voxrelay/internal/api"
	"github.com/dgnsrekt/voxrelay/internal/config"
	"github.com/dgnsrekt/voxrelay/internal/logging"
	"github.com/dgnsrekt/voxrelay/internal/metrics"
	"github.com/dgnsrekt/voxrelay/internal/relay"
	"github.com/dgnsrekt/voxrelay/internal/speech"
	"github.com/dgnsrekt/voxrelay/internal/tts"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting voxrelay", "version", "0.1.0")

	// Warn if bearer token auth is disabled
	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}

	// Log loaded configuration (without sensitive values)
	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"http_port", cfg.HTTPPort,
		"gemini_model", cfg.GeminiModel,
		"default_voice", cfg.DefaultVoice,
		"prompt_language", cfg.PromptLanguage,
		"retry_limit", cfg.RetryLimit,
		"retry_base_delay", cfg.RetryBaseDelay,
		"max_text_length", cfg.MaxTextLength,
		"rate_limit_rps", cfg.RateLimitRPS,
		"trust_proxy_headers", cfg.TrustProxyHeaders,
		"metrics_enabled", cfg.MetricsEnabled,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// Initialize TTS engine registry with Gemini
	ttsRegistry := tts.NewRegistry()
	if cfg.ProviderConfigured() {
		client, err := relay.NewClient(relay.Config{
			APIKey:     cfg.GoogleAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			Model:      cfg.GeminiModel,
			RetryLimit: cfg.RetryLimit,
			BaseDelay:  cfg.RetryBaseDelay,
			Timeout:    cfg.ProviderTimeout,
		}, logger, relay.WithMetrics(m))
		if err != nil {
			logger.Warn("failed to initialize speech provider client", "error", err)
		} else {
			engine := tts.NewGeminiEngine(client, tts.GeminiConfig{
				DefaultVoice: cfg.DefaultVoice,
				Language:     tts.Language(cfg.PromptLanguage),
			}, logger)
			if err := ttsRegistry.Register(engine); err != nil {
				logger.Warn("failed to register Gemini TTS", "error", err)
			} else {
				logger.Info("Gemini TTS engine registered", "model", client.Model())
			}
		}
	} else {
		logger.Warn("GOOGLE_API_KEY is not set, speech requests will fail with a configuration error")
	}

	if ttsRegistry.Len() > 0 {
		logger.Info("speech pipeline ready", "engines", ttsRegistry.List())
	}

	speechService := speech.NewService(ttsRegistry, m, logger)

	// Create and start HTTP server
	server := api.New(cfg, logger, speechService, m)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
}
