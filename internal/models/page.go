package models

import (
	"time"

	"github.com/lib/pq"
)

// PageStatus is the publication state of a page. Transitions are not
// enforced; any status can be set via update.
type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
	PageStatusArchived  PageStatus = "archived"
)

// Page is a wiki article belonging to a space, with full version history
// kept in the page_versions ledger.
type Page struct {
	ID             string         `db:"id" json:"id"`
	Title          string         `db:"title" json:"title"`
	Content        string         `db:"content" json:"content"`
	Slug           string         `db:"slug" json:"slug"`
	SpaceID        string         `db:"space_id" json:"space_id"`
	AuthorID       string         `db:"author_id" json:"author_id"`
	ParentID       *string        `db:"parent_id" json:"parent_id,omitempty"`
	Tags           pq.StringArray `db:"tags" json:"tags"`
	Status         PageStatus     `db:"status" json:"status"`
	ViewCount      int            `db:"view_count" json:"view_count"`
	LastModifiedBy *string        `db:"last_modified_by" json:"last_modified_by,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	Author       *UserRef  `db:"-" json:"author,omitempty"`
	LastModifier *UserRef  `db:"-" json:"last_modifier,omitempty"`
	Space        *SpaceRef `db:"-" json:"space,omitempty"`
}

// PageVersion is one immutable entry of a page's version ledger.
type PageVersion struct {
	ID         string    `db:"id" json:"id"`
	PageID     string    `db:"page_id" json:"page_id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	Version    int       `db:"version" json:"version"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	ChangeNote string    `db:"change_note" json:"change_note"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	Author *UserRef `db:"-" json:"author,omitempty"`
}

// CreatePageRequest holds the payload for creating a page.
type CreatePageRequest struct {
	Title    string   `json:"title" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	SpaceID  string   `json:"space_id" validate:"required"`
	ParentID *string  `json:"parent_id"`
	Tags     []string `json:"tags"`
}

// UpdatePageRequest holds the mutable page attributes. Nil fields keep
// their current values.
type UpdatePageRequest struct {
	Title      *string     `json:"title" validate:"omitempty,min=1"`
	Content    *string     `json:"content"`
	Tags       []string    `json:"tags"`
	Status     *PageStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	ChangeNote string      `json:"change_note"`
}

// PageFilter restricts page listings.
type PageFilter struct {
	SpaceID  string
	ParentID *string
	RootOnly bool
}
