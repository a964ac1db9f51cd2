package tts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgnsrekt/voxrelay/internal/audio"
	"github.com/dgnsrekt/voxrelay/internal/relay"
	"github.com/dgnsrekt/voxrelay/internal/wav"
)

// GeminiEngineName is the registry name of the Gemini engine.
const GeminiEngineName = "gemini"

// Sender delivers a payload to the speech provider. *relay.Client implements it.
type Sender interface {
	Send(ctx context.Context, payload *relay.Payload) (*relay.Response, error)
	Model() string
}

// GeminiConfig holds prompt settings for the Gemini engine.
type GeminiConfig struct {
	// DefaultVoice is used when a request names no voice.
	DefaultVoice string
	// Language selects the instruction phrasing.
	Language Language
}

// GeminiEngine implements the Engine interface on top of the remote
// generative speech API.
type GeminiEngine struct {
	sender Sender
	config GeminiConfig
	logger *slog.Logger
}

// NewGeminiEngine creates a Gemini TTS engine.
func NewGeminiEngine(sender Sender, cfg GeminiConfig, logger *slog.Logger) *GeminiEngine {
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = DefaultVoice
	}
	if cfg.Language == "" {
		cfg.Language = LanguageEnglish
	}
	return &GeminiEngine{
		sender: sender,
		config: cfg,
		logger: logger,
	}
}

// Name returns the engine identifier.
func (g *GeminiEngine) Name() string {
	return GeminiEngineName
}

// Synthesize composes the instruction, sends it, and wraps the returned PCM
// in a WAV container.
func (g *GeminiEngine) Synthesize(ctx context.Context, req SpeechRequest) (*AudioResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := Compose(req, ComposeOptions{
		DefaultVoice: g.config.DefaultVoice,
		Language:     g.config.Language,
		Model:        g.sender.Model(),
	})

	g.logger.Debug("sending speech request",
		"voice", payload.Voice(),
		"model", payload.Model,
		"text_length", len(req.Text),
		"prompt_length", len(payload.Prompt()),
	)

	resp, err := g.sender.Send(ctx, payload)
	if err != nil {
		return nil, err
	}

	clip, err := audio.FromResponse(resp.AudioBase64, resp.MimeType)
	if err != nil {
		g.logger.Error("provider returned unusable audio",
			"mime_type", resp.MimeType,
			"data_length", len(resp.AudioBase64),
			"error", err,
		)
		return nil, fmt.Errorf("failed to decode provider audio: %w", err)
	}

	g.logger.Debug("gemini synthesis complete",
		"sample_rate", clip.SampleRate,
		"samples", clip.Samples,
		"output_bytes", len(clip.WAV),
	)

	return &AudioResult{
		Data:       clip.WAV,
		Format:     "wav",
		SampleRate: clip.SampleRate,
		Channels:   wav.Channels,
		Duration:   time.Duration(clip.DurationMS()) * time.Millisecond,
	}, nil
}
