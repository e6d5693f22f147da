package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Question carries its correct answer as raw JSON because the shape depends
// on the question type: an option index for single choice, an index list for
// multiple choice, and a string for open text.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	SectionID     uuid.UUID       `json:"section_id"`
	TestID        *uuid.UUID      `json:"test_id"`
	Text          string          `json:"question"`
	Type          QuestionType    `json:"question_type"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Hint          *string         `json:"hint,omitempty"`
	Image         *string         `json:"image,omitempty"`
	IsFinal       bool            `json:"is_final"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at"`
	IsArchived    bool            `json:"is_archived"`
}

// AttemptQuestion is the student-facing view of a question inside a started
// attempt: options already shuffled, correct answer stripped.
type AttemptQuestion struct {
	ID      uuid.UUID    `json:"id"`
	Text    string       `json:"question"`
	Type    QuestionType `json:"question_type"`
	Options []string     `json:"options,omitempty"`
	Hint    *string      `json:"hint,omitempty"`
	Image   *string      `json:"image,omitempty"`
}

type CreateQuestionRequest struct {
	SectionID     uuid.UUID       `json:"section_id"`
	TestID        *uuid.UUID      `json:"test_id"`
	Text          string          `json:"question"`
	Type          QuestionType    `json:"question_type"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Hint          *string         `json:"hint"`
	Image         *string         `json:"image"`
	IsFinal       bool            `json:"is_final"`
}

type UpdateQuestionRequest struct {
	Text          *string         `json:"question"`
	Type          *QuestionType   `json:"question_type"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Hint          *string         `json:"hint"`
	Image         *string         `json:"image"`
	IsFinal       *bool           `json:"is_final"`
}
