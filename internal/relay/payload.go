package relay

import "google.golang.org/genai"

// Payload is the generateContent request body sent to the provider.
type Payload struct {
	Contents         []*genai.Content        `json:"contents"`
	GenerationConfig *genai.GenerationConfig `json:"generationConfig"`
	Model            string                  `json:"model"`
}

// NewPayload builds a single-turn audio request speaking prompt with a
// prebuilt voice.
func NewPayload(prompt, voice, model string) *Payload {
	return &Payload{
		Contents: []*genai.Content{
			{Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
		},
		GenerationConfig: &genai.GenerationConfig{
			ResponseModalities: []genai.Modality{genai.ModalityAudio},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
						VoiceName: voice,
					},
				},
			},
		},
		Model: model,
	}
}

// Prompt returns the text of the first part, or "".
func (p *Payload) Prompt() string {
	if p == nil || len(p.Contents) == 0 || p.Contents[0] == nil || len(p.Contents[0].Parts) == 0 {
		return ""
	}
	if part := p.Contents[0].Parts[0]; part != nil {
		return part.Text
	}
	return ""
}

// Voice returns the prebuilt voice name, or "".
func (p *Payload) Voice() string {
	if p == nil || p.GenerationConfig == nil || p.GenerationConfig.SpeechConfig == nil {
		return ""
	}
	vc := p.GenerationConfig.SpeechConfig.VoiceConfig
	if vc == nil || vc.PrebuiltVoiceConfig == nil {
		return ""
	}
	return vc.PrebuiltVoiceConfig.VoiceName
}

// Response is the audio extracted from a successful provider reply.
// Both fields are empty when the reply carried no inline data.
type Response struct {
	AudioBase64 string
	MimeType    string
}

// generateContentResponse mirrors only the fields read from the reply;
// every level may be absent.
type generateContentResponse struct {
	Candidates []*candidate `json:"candidates"`
}

type candidate struct {
	Content *content `json:"content"`
}

type content struct {
	Parts []*part `json:"parts"`
}

type part struct {
	InlineData *inlineData `json:"inlineData"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// audio returns the first inline data of the first candidate, if any.
func (r *generateContentResponse) audio() *Response {
	out := &Response{}
	if len(r.Candidates) == 0 || r.Candidates[0] == nil || r.Candidates[0].Content == nil {
		return out
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p != nil && p.InlineData != nil {
			out.AudioBase64 = p.InlineData.Data
			out.MimeType = p.InlineData.MimeType
			return out
		}
	}
	return out
}
