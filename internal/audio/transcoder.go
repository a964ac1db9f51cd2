// Package audio turns the provider's base64 linear PCM into a playable WAV file.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgnsrekt/voxrelay/internal/wav"
)

// DefaultSampleRate is used when the provider's mimeType carries no usable rate.
const DefaultSampleRate = 24000

// ErrMalformedAudio is returned when the provider response holds no decodable audio.
var ErrMalformedAudio = errors.New("malformed audio")

var rateParam = regexp.MustCompile(`rate=(\d+)`)

// Clip is provider audio re-encoded as a mono 16-bit WAV file.
type Clip struct {
	WAV        []byte
	SampleRate int
	Samples    int
}

// SampleRateFromMIME extracts the rate parameter from a mimeType such as
// "audio/L16;codec=pcm;rate=24000". Missing or zero values yield
// DefaultSampleRate, as do rates above wav.MaxSampleRate, which a WAV
// header cannot describe.
func SampleRateFromMIME(mimeType string) int {
	m := rateParam.FindStringSubmatch(mimeType)
	if m == nil {
		return DefaultSampleRate
	}
	rate, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil || rate == 0 || rate > wav.MaxSampleRate {
		return DefaultSampleRate
	}
	return int(rate)
}

// DecodeBase64PCM decodes base64 and reinterprets each consecutive byte pair
// as one little-endian signed 16-bit sample.
func DecodeBase64PCM(data string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedAudio, err)
	}
	if len(raw)%wav.BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd PCM byte count %d", ErrMalformedAudio, len(raw))
	}

	samples := make([]int16, len(raw)/wav.BytesPerSample)
	for i := range samples {
		samples[i] = int16(wav.LE16(raw[i*2:]))
	}
	return samples, nil
}

// FromResponse validates the provider's inline audio and converts it to WAV
// at the rate named in mimeType.
func FromResponse(audioBase64, mimeType string) (*Clip, error) {
	if audioBase64 == "" {
		return nil, fmt.Errorf("%w: response has no audio data", ErrMalformedAudio)
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return nil, fmt.Errorf("%w: unexpected mimeType %q", ErrMalformedAudio, mimeType)
	}

	rate := SampleRateFromMIME(mimeType)
	data, err := ToWAV(audioBase64, rate)
	if err != nil {
		return nil, err
	}

	return &Clip{
		WAV:        data,
		SampleRate: rate,
		Samples:    (len(data) - wav.HeaderSize) / wav.BytesPerSample,
	}, nil
}

// DurationMS returns the playback length in milliseconds.
func (c *Clip) DurationMS() int {
	if c.SampleRate <= 0 {
		return 0
	}
	return c.Samples * 1000 / c.SampleRate
}

// ToWAV decodes base64 PCM and wraps it in a WAV container at sampleRate.
// A sampleRate outside 1..wav.MaxSampleRate falls back to DefaultSampleRate.
func ToWAV(base64PCM string, sampleRate int) ([]byte, error) {
	samples, err := DecodeBase64PCM(base64PCM)
	if err != nil {
		return nil, err
	}
	if sampleRate <= 0 || sampleRate > wav.MaxSampleRate {
		sampleRate = DefaultSampleRate
	}
	return wav.Encode(samples, sampleRate), nil
}
