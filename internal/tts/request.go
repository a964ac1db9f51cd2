package tts

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Pitch hint bounds.
const (
	MinPitchHint = -10
	MaxPitchHint = 10
)

// ErrEmptyText is returned when a request has no text to speak.
var ErrEmptyText = errors.New("text is required")

// SpeechRequest is a single synthesis request.
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Style string `json:"style,omitempty"`
	// PitchHint is a coarse pitch preference in [-10, 10]. It is never applied
	// to the audio; it only shapes the spoken instruction.
	PitchHint PitchHint `json:"pitch,omitempty"`
}

// UnmarshalJSON accepts the pitch under either "pitch" or "pitchHint".
func (r *SpeechRequest) UnmarshalJSON(data []byte) error {
	type plain SpeechRequest
	var aux struct {
		plain
		Alias *PitchHint `json:"pitchHint"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = SpeechRequest(aux.plain)
	if aux.Alias != nil && r.PitchHint == 0 {
		r.PitchHint = *aux.Alias
	}
	return nil
}

// Validate reports ErrEmptyText when the text is empty or only whitespace.
func (r SpeechRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// PitchHint is an integer pitch preference that decodes from a JSON number
// or a numeric string. Anything unparseable decodes to 0.
type PitchHint int

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// UnmarshalJSON implements json.Unmarshaler.
func (p *PitchHint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			*p = 0
			return nil
		}
	} else {
		raw = string(data)
	}

	*p = ParsePitchHint(raw)
	return nil
}

// ParsePitchHint reads the leading integer of s ("5", "-4.5", "7px") and
// clamps it to [MinPitchHint, MaxPitchHint]. It returns 0 when s has none.
func ParsePitchHint(s string) PitchHint {
	s = strings.TrimSpace(s)

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return clampPitch(math.Trunc(f))
	}

	m := leadingInt.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		// Only overflow reaches here.
		if strings.HasPrefix(m, "-") {
			return MinPitchHint
		}
		return MaxPitchHint
	}
	return clampPitch(float64(n))
}

func clampPitch(f float64) PitchHint {
	switch {
	case f < MinPitchHint:
		return MinPitchHint
	case f > MaxPitchHint:
		return MaxPitchHint
	default:
		return PitchHint(f)
	}
}
