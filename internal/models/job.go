package models

import (
	"time"

	"github.com/google/uuid"
)

const JobPDFExtraction = "pdf-extraction"

// Job is a queued background task, serialized onto the Redis work queue.
type Job struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	SubsectionID uuid.UUID `json:"subsection_id"`
	FilePath     string    `json:"file_path"`
	CreatedAt    time.Time `json:"created_at"`
}
