package tts

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/voxrelay/internal/relay"
)

// DefaultVoice is used when a request names no voice.
const DefaultVoice = "Achernar"

// Pitch hints strictly beyond these thresholds become a pitch phrase.
const (
	highPitchThreshold = 3
	lowPitchThreshold  = -3
)

// Language selects the phrasing of the spoken instruction.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageIndonesian Language = "id"
)

// PitchLevel is the coarse class of a pitch hint.
type PitchLevel int

const (
	PitchNone PitchLevel = iota
	PitchHigh
	PitchLow
)

// ClassifyPitch maps a pitch hint onto a PitchLevel.
func ClassifyPitch(h PitchHint) PitchLevel {
	switch {
	case h > highPitchThreshold:
		return PitchHigh
	case h < lowPitchThreshold:
		return PitchLow
	default:
		return PitchNone
	}
}

type phrasing struct {
	high, low string
	template  string
}

var phrasings = map[Language]phrasing{
	LanguageEnglish: {
		high:     "high-pitched",
		low:      "low-pitched",
		template: "Say this in a %s manner: %s",
	},
	LanguageIndonesian: {
		high:     "dengan nada tinggi",
		low:      "dengan nada rendah",
		template: "Katakan dengan gaya %s: %s",
	},
}

func phrasingFor(lang Language) phrasing {
	if p, ok := phrasings[lang]; ok {
		return p
	}
	return phrasings[LanguageEnglish]
}

// StyleDescriptor keeps the pitch class and the free-text style apart until
// the prompt is rendered.
type StyleDescriptor struct {
	Pitch PitchLevel
	Style string
}

// NewStyleDescriptor builds a descriptor from a raw style and pitch hint.
// Surrounding whitespace in style is dropped.
func NewStyleDescriptor(style string, hint PitchHint) StyleDescriptor {
	return StyleDescriptor{
		Pitch: ClassifyPitch(hint),
		Style: strings.TrimSpace(style),
	}
}

// Empty reports whether the descriptor carries neither pitch nor style.
func (d StyleDescriptor) Empty() bool {
	return d.Pitch == PitchNone && d.Style == ""
}

// Render returns "<pitch phrase>, <style>", whichever of the two is
// present, or "".
func (d StyleDescriptor) Render(lang Language) string {
	p := phrasingFor(lang)

	var pitch string
	switch d.Pitch {
	case PitchHigh:
		pitch = p.high
	case PitchLow:
		pitch = p.low
	}

	switch {
	case pitch != "" && d.Style != "":
		return pitch + ", " + d.Style
	case pitch != "":
		return pitch
	default:
		return d.Style
	}
}

// BuildPrompt wraps text in the instruction template when the descriptor is
// non-empty and returns text unchanged otherwise.
func BuildPrompt(text string, d StyleDescriptor, lang Language) string {
	if d.Empty() {
		return text
	}
	return fmt.Sprintf(phrasingFor(lang).template, d.Render(lang), text)
}

// ComposeOptions carries the deployment-level inputs to Compose.
type ComposeOptions struct {
	DefaultVoice string
	Language     Language
	Model        string
}

// ResolveVoice returns the trimmed requested voice, or the fallback. Unknown
// names are returned as-is.
func ResolveVoice(voice, fallback string) string {
	if v := strings.TrimSpace(voice); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return DefaultVoice
}

// Compose builds the provider payload for req. It does no I/O and never
// fails; validating req is the caller's job.
func Compose(req SpeechRequest, opts ComposeOptions) *relay.Payload {
	desc := NewStyleDescriptor(req.Style, req.PitchHint)
	prompt := BuildPrompt(req.Text, desc, opts.Language)
	return relay.NewPayload(prompt, ResolveVoice(req.Voice, opts.DefaultVoice), opts.Model)
}
