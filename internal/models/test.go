package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Test belongs to exactly one of a section or a topic, never both.
type Test struct {
	ID          uuid.UUID  `json:"id"`
	SectionID   *uuid.UUID `json:"section_id"`
	TopicID     *uuid.UUID `json:"topic_id"`
	Title       string     `json:"title"`
	Type        TestType   `json:"type"`
	Duration    *int       `json:"duration"`     // minutes
	MaxAttempts *int       `json:"max_attempts"` // nil means type default
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	IsArchived  bool       `json:"is_archived"`
}

// RandomizedQuestion is the per-attempt snapshot of one question: the option
// order the student actually saw and where the correct answer landed after
// the shuffle. OriginalAnswer keeps the source answer for audit and for
// grading open-text questions.
type RandomizedQuestion struct {
	Options        []string        `json:"options,omitempty"`
	CorrectIndex   *int            `json:"correct_answer_index,omitempty"`
	CorrectIndices []int           `json:"correct_answer_indices,omitempty"`
	Type           QuestionType    `json:"question_type"`
	OriginalAnswer json.RawMessage `json:"original_answer,omitempty"`
}

// RandomizedConfig is computed once when an attempt starts and never
// regenerated, so grading matches what was displayed even if the underlying
// questions change later.
type RandomizedConfig struct {
	Questions map[string]RandomizedQuestion `json:"questions"`
	Order     []uuid.UUID                   `json:"order"`
}

type TestAttempt struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	TestID           uuid.UUID         `json:"test_id"`
	AttemptNumber    int               `json:"attempt_number"`
	Status           AttemptStatus     `json:"status"`
	Score            *float64          `json:"score"`
	TimeSpent        *int              `json:"time_spent"` // seconds
	Answers          json.RawMessage   `json:"answers,omitempty"`
	RandomizedConfig *RandomizedConfig `json:"-"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at"`
}

type CreateTestRequest struct {
	SectionID   *uuid.UUID `json:"section_id"`
	TopicID     *uuid.UUID `json:"topic_id"`
	Title       string     `json:"title"`
	Type        TestType   `json:"type"`
	Duration    *int       `json:"duration"`
	MaxAttempts *int       `json:"max_attempts"`
}

type UpdateTestRequest struct {
	Title       *string `json:"title"`
	Duration    *int    `json:"duration"`
	MaxAttempts *int    `json:"max_attempts"`
}

type StartTestResponse struct {
	AttemptID     uuid.UUID         `json:"attempt_id"`
	TestID        uuid.UUID         `json:"test_id"`
	Questions     []AttemptQuestion `json:"questions"`
	StartTime     time.Time         `json:"start_time"`
	Duration      *int              `json:"duration"`
	AttemptNumber int               `json:"attempt_number"`
}

// SubmitTestRequest maps question id to the raw submitted answer: an option
// index, an index list, or a string, depending on the question type.
type SubmitTestRequest struct {
	Answers   map[string]json.RawMessage `json:"answers"`
	TimeSpent *int                       `json:"time_spent"`
}

type SubmitTestResponse struct {
	Attempt        *TestAttempt `json:"attempt"`
	CorrectCount   int          `json:"correct_count"`
	TotalQuestions int          `json:"total_questions"`
}

type GenerateTestRequest struct {
	Title        *string `json:"title"`
	NumQuestions *int    `json:"num_questions"`
	Duration     *int    `json:"duration"`
}
