package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is the unit pushed onto a work queue: one ingestion job to drive.
type Job struct {
	JobID       uuid.UUID `json:"job_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
