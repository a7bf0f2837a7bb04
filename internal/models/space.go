package models

import "time"

// SpaceRole is a membership role scoped to a single space.
type SpaceRole string

const (
	SpaceRoleAdmin  SpaceRole = "admin"
	SpaceRoleEditor SpaceRole = "editor"
	SpaceRoleViewer SpaceRole = "viewer"
)

// Space is a named container holding pages, with its own membership roles.
// The key is globally unique and stored uppercased.
type Space struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Key         string    `db:"key" json:"key"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Owner   *UserRef      `db:"-" json:"owner,omitempty"`
	Members []SpaceMember `db:"-" json:"members,omitempty"`
}

// SpaceMember is one (user, role) pair on a space.
type SpaceMember struct {
	SpaceID string    `db:"space_id" json:"-"`
	UserID  string    `db:"user_id" json:"user_id"`
	Role    SpaceRole `db:"role" json:"role"`

	User *UserRef `db:"-" json:"user,omitempty"`
}

// IsMember reports whether the user appears in the member list with any role.
func (s *Space) IsMember(userID string) bool {
	for _, m := range s.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// CreateSpaceRequest holds the payload for creating a space.
type CreateSpaceRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Key         string `json:"key" validate:"required,alphanum,max=10"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateSpaceRequest holds the mutable space attributes.
type UpdateSpaceRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// SpaceRef is the compact space representation embedded in page responses.
type SpaceRef struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Key  string `db:"key" json:"key"`
}
