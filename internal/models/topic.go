package models

import (
	"time"

	"github.com/google/uuid"
)

type Topic struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Image       *string    `json:"image"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	IsArchived  bool       `json:"is_archived"`
}

// Section belongs to a topic and is ordered among its siblings.
type Section struct {
	ID          uuid.UUID  `json:"id"`
	TopicID     uuid.UUID  `json:"topic_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Content     *string    `json:"content"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	IsArchived  bool       `json:"is_archived"`
}

// Subsection is the smallest content unit. Content holds the text body for
// TEXT, a video URL for VIDEO, and the stored file path for PDF.
type Subsection struct {
	ID         uuid.UUID      `json:"id"`
	SectionID  uuid.UUID      `json:"section_id"`
	Title      string         `json:"title"`
	Content    *string        `json:"content"`
	Type       SubsectionType `json:"type"`
	Order      int            `json:"order"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  *time.Time     `json:"updated_at"`
	IsArchived bool           `json:"is_archived"`
}

type CreateTopicRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Image       *string `json:"image"`
}

type UpdateTopicRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Image       *string `json:"image"`
}

type CreateSectionRequest struct {
	TopicID     uuid.UUID `json:"topic_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Content     *string   `json:"content"`
	Order       int       `json:"order"`
}

type UpdateSectionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	Order       *int    `json:"order"`
}

type CreateSubsectionRequest struct {
	SectionID uuid.UUID      `json:"section_id"`
	Title     string         `json:"title"`
	Content   *string        `json:"content"`
	Type      SubsectionType `json:"type"`
	Order     int            `json:"order"`
}

type UpdateSubsectionRequest struct {
	Title   *string         `json:"title"`
	Content *string         `json:"content"`
	Type    *SubsectionType `json:"type"`
	Order   *int            `json:"order"`
}
