package models

import (
	"time"

	"github.com/lib/pq"
)

// TemplateCategory groups templates in listings.
type TemplateCategory string

const (
	TemplateCategoryMeeting       TemplateCategory = "meeting"
	TemplateCategoryProject       TemplateCategory = "project"
	TemplateCategoryDocumentation TemplateCategory = "documentation"
	TemplateCategoryProcess       TemplateCategory = "process"
	TemplateCategoryOther         TemplateCategory = "other"
)

// Template is a reusable content blueprint. Not versioned; usage_count is
// bumped atomically at the storage layer on each use.
type Template struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description"`
	Content     string           `db:"content" json:"content"`
	Category    TemplateCategory `db:"category" json:"category"`
	AuthorID    string           `db:"author_id" json:"author_id"`
	IsPublic    bool             `db:"is_public" json:"is_public"`
	UsageCount  int              `db:"usage_count" json:"usage_count"`
	Tags        pq.StringArray   `db:"tags" json:"tags"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`

	Author *UserRef `db:"-" json:"author,omitempty"`
}

// UpdateTemplateRequest holds the mutable template attributes. Nil fields
// keep their current values.
type UpdateTemplateRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=1"`
	Description *string           `json:"description"`
	Content     *string           `json:"content" validate:"omitempty,min=1"`
	Category    *TemplateCategory `json:"category" validate:"omitempty,oneof=meeting project documentation process other"`
	IsPublic    *bool             `json:"is_public"`
	Tags        []string          `json:"tags"`
}

// CreateTemplateRequest holds the payload for creating a template.
type CreateTemplateRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Content     string           `json:"content" validate:"required"`
	Category    TemplateCategory `json:"category" validate:"required,oneof=meeting project documentation process other"`
	IsPublic    bool             `json:"is_public"`
	Tags        []string         `json:"tags"`
}
