package models

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	StartYear   int       `json:"start_year"`
	EndYear     int       `json:"end_year"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	IsArchived  bool      `json:"is_archived"`
}

// GroupMember is a row in either group_students or group_teachers.
type GroupMember struct {
	GroupID  uuid.UUID         `json:"group_id"`
	UserID   uuid.UUID         `json:"user_id"`
	Username string            `json:"username"`
	FullName string            `json:"full_name"`
	Status   GroupMemberStatus `json:"status,omitempty"`
	JoinedAt time.Time         `json:"joined_at"`
	LeftAt   *time.Time        `json:"left_at,omitempty"`
}

type CreateGroupRequest struct {
	Name        string  `json:"name"`
	StartYear   int     `json:"start_year"`
	EndYear     int     `json:"end_year"`
	Description *string `json:"description"`
}

type GroupMembershipRequest struct {
	UserID uuid.UUID `json:"user_id"`
}
