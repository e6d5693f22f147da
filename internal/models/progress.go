package models

import (
	"time"

	"github.com/google/uuid"
)

type TopicProgress struct {
	ID                   uuid.UUID      `json:"id"`
	UserID               uuid.UUID      `json:"user_id"`
	TopicID              uuid.UUID      `json:"topic_id"`
	Status               ProgressStatus `json:"status"`
	CompletionPercentage float64        `json:"completion_percentage"`
	LastAccessed         time.Time      `json:"last_accessed"`
	CreatedAt            time.Time      `json:"created_at"`
}

type SectionProgress struct {
	ID                   uuid.UUID      `json:"id"`
	UserID               uuid.UUID      `json:"user_id"`
	SectionID            uuid.UUID      `json:"section_id"`
	Status               ProgressStatus `json:"status"`
	CompletionPercentage float64        `json:"completion_percentage"`
	LastAccessed         time.Time      `json:"last_accessed"`
	CreatedAt            time.Time      `json:"created_at"`
}

type SubsectionProgress struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	SubsectionID uuid.UUID  `json:"subsection_id"`
	IsViewed     bool       `json:"is_viewed"`
	ViewedAt     *time.Time `json:"viewed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserProfile is the consolidated snapshot of one learner's journey.
type UserProfile struct {
	Topics            []*TopicProgress      `json:"topics"`
	Sections          []*SectionProgress    `json:"sections"`
	Subsections       []*SubsectionProgress `json:"subsections"`
	TestAttempts      []*TestAttempt        `json:"test_attempts"`
	OverallCompletion *float64              `json:"overall_completion,omitempty"`
}
