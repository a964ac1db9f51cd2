package tts

import (
	"bytes"
	"context"
	"io"
	"time"
)

// AudioResult represents synthesized audio output.
type AudioResult struct {
	// Data contains the raw audio bytes (WAV format).
	Data []byte
	// Format describes the audio format (e.g., "wav").
	Format string
	// SampleRate is the audio sample rate in Hz.
	SampleRate int
	// Channels is the number of audio channels.
	Channels int
	// Duration is the playback length.
	Duration time.Duration
}

// Size returns the number of audio bytes.
func (a *AudioResult) Size() int {
	return len(a.Data)
}

// Reader returns an io.Reader for the audio data.
func (a *AudioResult) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Synthesize converts a speech request to audio.
	Synthesize(ctx context.Context, req SpeechRequest) (*AudioResult, error)
	// Name returns the engine identifier.
	Name() string
}
