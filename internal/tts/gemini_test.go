package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgnsrekt/voxrelay/internal/audio"
	"github.com/dgnsrekt/voxrelay/internal/relay"
	"github.com/dgnsrekt/voxrelay/internal/wav"
)

// fakeSender records the payload it was given and replies with a canned response.
type fakeSender struct {
	resp    *relay.Response
	err     error
	calls   int
	payload *relay.Payload
}

func (f *fakeSender) Send(ctx context.Context, payload *relay.Payload) (*relay.Response, error) {
	f.calls++
	f.payload = payload
	return f.resp, f.err
}

func (f *fakeSender) Model() string {
	return "fake-model"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeminiEngine_Name(t *testing.T) {
	engine := NewGeminiEngine(&fakeSender{}, GeminiConfig{}, testLogger())
	if engine.Name() != "gemini" {
		t.Errorf("expected name 'gemini', got '%s'", engine.Name())
	}
}

func TestGeminiEngine_Synthesize(t *testing.T) {
	pcm := make([]byte, 48000) // one second at 24 kHz
	sender := &fakeSender{resp: &relay.Response{
		AudioBase64: base64.StdEncoding.EncodeToString(pcm),
		MimeType:    "audio/L16;codec=pcm;rate=24000",
	}}
	engine := NewGeminiEngine(sender, GeminiConfig{DefaultVoice: "Zephyr"}, testLogger())

	result, err := engine.Synthesize(context.Background(), SpeechRequest{Text: "Hello", Style: "calm"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if result.Format != "wav" || result.SampleRate != 24000 || result.Channels != 1 {
		t.Errorf("unexpected result metadata: %+v", result)
	}
	if result.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", result.Duration)
	}
	if result.Size() != wav.HeaderSize+len(pcm) {
		t.Errorf("Size() = %d, want %d", result.Size(), wav.HeaderSize+len(pcm))
	}
	if _, err := wav.ParseHeader(result.Data); err != nil {
		t.Errorf("invalid WAV header: %v", err)
	}

	if sender.payload.Voice() != "Zephyr" {
		t.Errorf("voice = %q, want Zephyr", sender.payload.Voice())
	}
	if sender.payload.Model != "fake-model" {
		t.Errorf("model = %q, want fake-model", sender.payload.Model)
	}
	if want := "Say this in a calm manner: Hello"; sender.payload.Prompt() != want {
		t.Errorf("prompt = %q, want %q", sender.payload.Prompt(), want)
	}
}

func TestGeminiEngine_Synthesize_Indonesian(t *testing.T) {
	sender := &fakeSender{resp: &relay.Response{
		AudioBase64: base64.StdEncoding.EncodeToString(make([]byte, 4)),
		MimeType:    "audio/L16;rate=24000",
	}}
	engine := NewGeminiEngine(sender, GeminiConfig{Language: LanguageIndonesian}, testLogger())

	if _, err := engine.Synthesize(context.Background(), SpeechRequest{Text: "Halo", PitchHint: -9}); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if want := "Katakan dengan gaya dengan nada rendah: Halo"; sender.payload.Prompt() != want {
		t.Errorf("prompt = %q, want %q", sender.payload.Prompt(), want)
	}
	if sender.payload.Voice() != DefaultVoice {
		t.Errorf("voice = %q, want %q", sender.payload.Voice(), DefaultVoice)
	}
}

func TestGeminiEngine_Synthesize_EmptyText(t *testing.T) {
	sender := &fakeSender{}
	engine := NewGeminiEngine(sender, GeminiConfig{}, testLogger())

	_, err := engine.Synthesize(context.Background(), SpeechRequest{Text: "  "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("expected no remote call, got %d", sender.calls)
	}
}

func TestGeminiEngine_Synthesize_SenderError(t *testing.T) {
	sender := &fakeSender{err: relay.ErrRemoteExhausted}
	engine := NewGeminiEngine(sender, GeminiConfig{}, testLogger())

	_, err := engine.Synthesize(context.Background(), SpeechRequest{Text: "hi"})
	if !errors.Is(err, relay.ErrRemoteExhausted) {
		t.Errorf("expected ErrRemoteExhausted, got %v", err)
	}
}

func TestGeminiEngine_Synthesize_MalformedAudio(t *testing.T) {
	tests := []struct {
		name string
		resp *relay.Response
	}{
		{"no audio", &relay.Response{}},
		{"odd bytes", &relay.Response{AudioBase64: base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), MimeType: "audio/L16;rate=24000"}},
		{"not audio", &relay.Response{AudioBase64: "AAAA", MimeType: "text/plain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewGeminiEngine(&fakeSender{resp: tt.resp}, GeminiConfig{}, testLogger())
			_, err := engine.Synthesize(context.Background(), SpeechRequest{Text: "hi"})
			if !errors.Is(err, audio.ErrMalformedAudio) {
				t.Errorf("expected ErrMalformedAudio, got %v", err)
			}
		})
	}
}
