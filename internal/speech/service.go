// Package speech runs a single synthesis request end to end: validation,
// engine lookup, synthesis and outcome accounting.
package speech

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgnsrekt/voxrelay/internal/audio"
	"github.com/dgnsrekt/voxrelay/internal/metrics"
	"github.com/dgnsrekt/voxrelay/internal/relay"
	"github.com/dgnsrekt/voxrelay/internal/tts"
)

var (
	// ErrNoTTSEngine is returned when no TTS engine is available.
	ErrNoTTSEngine = errors.New("no TTS engine available")
	// ErrSynthesisFailed wraps every engine failure.
	ErrSynthesisFailed = errors.New("TTS synthesis failed")
)

// Synthesis outcomes, used as metric labels.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeConfigError    = "config_error"
	OutcomeExhausted      = "exhausted"
	OutcomeRejected       = "rejected"
	OutcomeMalformedAudio = "malformed_audio"
	OutcomeCanceled       = "canceled"
	OutcomeError          = "error"
)

// Result is a finished synthesis.
type Result struct {
	JobID  string
	Engine string
	Audio  *tts.AudioResult
}

// Service processes speech requests using the registry's default engine.
type Service struct {
	registry *tts.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a speech service. m may be nil.
func NewService(registry *tts.Registry, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		metrics:  m,
		logger:   logger,
	}
}

// Synthesize validates req and synthesizes it. jobID names the request in
// logs; an empty jobID gets a fresh one.
func (s *Service) Synthesize(ctx context.Context, jobID string, req tts.SpeechRequest) (*Result, error) {
	job := NewJob(jobID, req)

	s.metrics.SynthesisStarted()
	result, err := s.process(ctx, job)
	s.metrics.SynthesisFinished(Outcome(err), job.Age().Seconds())

	return result, err
}

func (s *Service) process(ctx context.Context, job *Job) (*Result, error) {
	req := job.Request

	// Step 1: Validate before anything remote happens
	if err := req.Validate(); err != nil {
		s.logger.Warn("rejecting speech request", "job_id", job.ID, "error", err)
		return nil, err
	}

	s.logger.Info("processing speech request",
		"job_id", job.ID,
		"text_length", len(req.Text),
		"voice", req.Voice,
		"style_length", len(req.Style),
		"pitch_hint", int(req.PitchHint),
	)

	// Step 2: Get TTS engine
	if s.registry == nil {
		s.logger.Error("no TTS engine registry", "job_id", job.ID)
		return nil, ErrNoTTSEngine
	}
	engine, err := s.registry.Default()
	if err != nil {
		s.logger.Error("no TTS engine registered", "job_id", job.ID)
		return nil, ErrNoTTSEngine
	}

	// Step 3: Synthesize
	s.logger.Debug("synthesizing speech", "job_id", job.ID, "engine", engine.Name())

	audioResult, err := engine.Synthesize(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("speech request canceled", "job_id", job.ID)
		} else {
			s.logger.Error("TTS synthesis failed", "job_id", job.ID, "engine", engine.Name(), "error", err)
		}
		return nil, errors.Join(ErrSynthesisFailed, err)
	}

	s.metrics.RecordAudio(audioResult.Duration.Seconds())

	s.logger.Info("speech synthesis complete",
		"job_id", job.ID,
		"engine", engine.Name(),
		"format", audioResult.Format,
		"sample_rate", audioResult.SampleRate,
		"bytes", audioResult.Size(),
		"audio_duration", audioResult.Duration,
		"elapsed", job.Age(),
	)

	return &Result{
		JobID:  job.ID,
		Engine: engine.Name(),
		Audio:  audioResult,
	}, nil
}

// Outcome classifies a Synthesize error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, tts.ErrEmptyText):
		return OutcomeInvalidInput
	case errors.Is(err, ErrNoTTSEngine), errors.Is(err, relay.ErrMissingAPIKey):
		return OutcomeConfigError
	case errors.Is(err, relay.ErrRemoteExhausted):
		return OutcomeExhausted
	case errors.Is(err, relay.ErrRemoteRejected):
		return OutcomeRejected
	case errors.Is(err, audio.ErrMalformedAudio), errors.Is(err, relay.ErrInvalidResponse):
		return OutcomeMalformedAudio
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
