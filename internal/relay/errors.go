package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteExhausted is returned when every attempt was rate limited or
	// failed at the transport layer.
	ErrRemoteExhausted = errors.New("speech provider unavailable after multiple attempts")

	// ErrRemoteRejected matches any *RejectedError.
	ErrRemoteRejected = errors.New("speech provider rejected the request")

	// ErrInvalidResponse is returned when a successful response body is not valid JSON.
	ErrInvalidResponse = errors.New("invalid speech provider response")
)

// genericRejectMessage is used when the provider gives no error message.
const genericRejectMessage = "provider rejected the request"

// RejectedError is a definitive, non-retryable provider error response.
type RejectedError struct {
	StatusCode int
	// Status is the provider's symbolic status, e.g. "INVALID_ARGUMENT".
	Status string
	// Message is the provider's message, or a generic one when absent.
	Message string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("provider error (status %d, %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrRemoteRejected.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRemoteRejected
}

// apiError is the provider's error envelope: {"error": {...}}.
type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
