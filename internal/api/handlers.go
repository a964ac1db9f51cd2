package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/voxrelay/internal/audio"
	"github.com/dgnsrekt/voxrelay/internal/relay"
	"github.com/dgnsrekt/voxrelay/internal/speech"
	"github.com/dgnsrekt/voxrelay/internal/tts"
)

// maxBodyBytes bounds the JSON request body.
const maxBodyBytes = 1 << 20

// Client-facing error messages. Provider details stay in the server log.
const (
	msgTextRequired   = "Parameter 'text' is required."
	msgInvalidJSON    = "invalid JSON body"
	msgTextTooLong    = "text exceeds maximum length"
	msgConfigError    = "server configuration error"
	msgExhausted      = "failed to reach the speech provider after multiple attempts"
	msgMalformedAudio = "the speech provider returned no usable audio"
	msgInternalError  = "internal server error"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse represents the response body for /v1/healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// VoicesResponse represents the response body for /v1/voices.
type VoicesResponse struct {
	Voices []tts.Voice `json:"voices"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleVoices handles GET /v1/voices requests.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VoicesResponse{Voices: tts.Catalog()})
}

// handleGenerateSpeech handles POST /api/generate-speech requests. On
// success the body is a WAV file.
func (s *Server) handleGenerateSpeech(w http.ResponseWriter, r *http.Request) {
	requestID := chimiddleware.GetReqID(r.Context())

	var req tts.SpeechRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Warn("failed to decode speech request", "request_id", requestID, "error", err)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	// Validate text length
	if len(req.Text) > s.cfg.MaxTextLength {
		s.logger.Warn("text exceeds max length",
			"request_id", requestID,
			"length", len(req.Text),
			"max", s.cfg.MaxTextLength,
		)
		writeError(w, http.StatusBadRequest, msgTextTooLong)
		return
	}

	result, err := s.speech.Synthesize(r.Context(), requestID, req)
	if err != nil {
		s.writeSynthesisError(w, requestID, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(result.Audio.Size()))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, result.Audio.Reader()); err != nil {
		s.logger.Warn("failed to write audio response", "request_id", requestID, "error", err)
	}
}

// writeSynthesisError maps a synthesis failure onto a status and a message
// that is safe to show the client.
func (s *Server) writeSynthesisError(w http.ResponseWriter, requestID string, err error) {
	var rejected *relay.RejectedError

	switch {
	case errors.Is(err, tts.ErrEmptyText):
		writeError(w, http.StatusBadRequest, msgTextRequired)
	case errors.Is(err, speech.ErrNoTTSEngine), errors.Is(err, relay.ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, msgConfigError)
	case errors.Is(err, relay.ErrRemoteExhausted):
		writeError(w, http.StatusInternalServerError, msgExhausted)
	case errors.As(err, &rejected):
		writeError(w, http.StatusInternalServerError, rejected.Message)
	case errors.Is(err, audio.ErrMalformedAudio), errors.Is(err, relay.ErrInvalidResponse):
		writeError(w, http.StatusInternalServerError, msgMalformedAudio)
	case errors.Is(err, context.Canceled):
		s.logger.Info("client went away", "request_id", requestID)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	default:
		s.logger.Error("unexpected synthesis error", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}
