package models

import "time"

// SharePermission is the level granted by a document share entry.
type SharePermission string

const (
	PermissionView SharePermission = "view"
	PermissionEdit SharePermission = "edit"
)

// Document is a lighter, individually-owned article with inline version
// history and explicit per-user share grants.
type Document struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Content        string    `db:"content" json:"content"`
	AuthorID       string    `db:"author_id" json:"author_id"`
	IsPublic       bool      `db:"is_public" json:"is_public"`
	CurrentVersion int       `db:"current_version" json:"current_version"`
	LastModifiedBy *string   `db:"last_modified_by" json:"last_modified_by,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Author       *UserRef          `db:"-" json:"author,omitempty"`
	LastModifier *UserRef          `db:"-" json:"last_modifier,omitempty"`
	SharedWith   []DocumentShare   `db:"-" json:"shared_with"`
	Versions     []DocumentVersion `db:"-" json:"versions,omitempty"`
	Mentions     []string          `db:"-" json:"mentions,omitempty"`
}

// DocumentShare grants one user view or edit access to a document. A user
// appears at most once per document.
type DocumentShare struct {
	DocumentID string          `db:"document_id" json:"-"`
	UserID     string          `db:"user_id" json:"user_id"`
	Permission SharePermission `db:"permission" json:"permission"`

	User *UserRef `db:"-" json:"user,omitempty"`
}

// DocumentVersion is one entry of a document's embedded history.
type DocumentVersion struct {
	ID            string    `db:"id" json:"id"`
	DocumentID    string    `db:"document_id" json:"-"`
	Content       string    `db:"content" json:"content"`
	AuthorID      string    `db:"author_id" json:"author_id"`
	Changes       string    `db:"changes" json:"changes"`
	VersionNumber int       `db:"version_number" json:"version_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	Author *UserRef `db:"-" json:"author,omitempty"`
}

// CreateDocumentRequest holds the payload for creating a document.
type CreateDocumentRequest struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	IsPublic bool   `json:"is_public"`
}

// UpdateDocumentRequest replaces the live document fields.
type UpdateDocumentRequest struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	IsPublic bool   `json:"is_public"`
}

// ShareDocumentRequest grants or replaces one user's access by email.
type ShareDocumentRequest struct {
	UserEmail  string          `json:"user_email" validate:"required,email"`
	Permission SharePermission `json:"permission" validate:"required,oneof=view edit"`
}

// SharedWithUser reports whether a share entry exists for the user.
func (d *Document) SharedWithUser(userID string) bool {
	for _, s := range d.SharedWith {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// HasEditGrant reports whether the user holds an edit-level share.
func (d *Document) HasEditGrant(userID string) bool {
	for _, s := range d.SharedWith {
		if s.UserID == userID && s.Permission == PermissionEdit {
			return true
		}
	}
	return false
}
