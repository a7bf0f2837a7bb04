package models

import "time"

// Comment belongs to a page; parent allows shallow threading. is_edited is
// set on the first edit and never cleared.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	PageID    string    `db:"page_id" json:"page_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	ParentID  *string   `db:"parent_id" json:"parent_id,omitempty"`
	IsEdited  bool      `db:"is_edited" json:"is_edited"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Author *UserRef `db:"-" json:"author,omitempty"`
}

// CreateCommentRequest holds the payload for posting a comment.
type CreateCommentRequest struct {
	Content  string  `json:"content" validate:"required"`
	PageID   string  `json:"page_id" validate:"required"`
	ParentID *string `json:"parent_id"`
}

// UpdateCommentRequest edits a comment's content.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}
