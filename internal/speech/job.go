package speech

import (
	"time"

	"github.com/google/uuid"

	"github.com/dgnsrekt/voxrelay/internal/tts"
)

// Job is one synthesis request moving through the service.
type Job struct {
	ID        string
	Request   tts.SpeechRequest
	CreatedAt time.Time
}

// NewJob creates a job with a unique ID. A non-empty id is used as-is.
func NewJob(id string, req tts.SpeechRequest) *Job {
	if id == "" {
		id = uuid.New().String()
	}
	return &Job{
		ID:        id,
		Request:   req,
		CreatedAt: time.Now(),
	}
}

// Age returns how long ago the job was created.
func (j *Job) Age() time.Duration {
	return time.Since(j.CreatedAt)
}
