package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	EventProgressUpdated = "progress.updated"
	EventAttemptScored   = "attempt.scored"
)

// Event is published on the Redis progress channel and fanned out to the
// owning user's websocket connections.
type Event struct {
	UserID  uuid.UUID       `json:"user_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
