package models

import (
	"encoding/json"
	"time"
)

// ActivityAction is the verb of an activity log entry.
type ActivityAction string

const (
	ActionCreated   ActivityAction = "created"
	ActionUpdated   ActivityAction = "updated"
	ActionDeleted   ActivityAction = "deleted"
	ActionViewed    ActivityAction = "viewed"
	ActionCommented ActivityAction = "commented"
)

// ActivityTarget is the kind of entity an activity refers to.
type ActivityTarget string

const (
	TargetPage     ActivityTarget = "page"
	TargetSpace    ActivityTarget = "space"
	TargetComment  ActivityTarget = "comment"
	TargetTemplate ActivityTarget = "template"
	TargetDocument ActivityTarget = "document"
)

// Activity is an append-only audit log entry. Target references are weak:
// deleting the subject leaves the entry in place.
type Activity struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Action      ActivityAction  `db:"action" json:"action"`
	Target      ActivityTarget  `db:"target" json:"target"`
	TargetID    string          `db:"target_id" json:"target_id"`
	TargetTitle string          `db:"target_title" json:"target_title"`
	SpaceID     *string         `db:"space_id" json:"space_id,omitempty"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`

	User  *UserRef  `db:"-" json:"user,omitempty"`
	Space *SpaceRef `db:"-" json:"space,omitempty"`
}

// ActivityFilter restricts the activity feed.
type ActivityFilter struct {
	UserID string
	Since  *time.Time
	Limit  int
}
