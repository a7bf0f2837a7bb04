// Package authz is the single permission evaluator for every resource kind.
// Checks are pure functions of the principal and the already-loaded resource
// graph; no I/O happens here.
package authz

import "github.com/teamhub/kb-api/internal/models"

// Principal identifies the caller and its global role.
type Principal struct {
	UserID string
	Role   models.UserRole
}

// Resource adapts one entity kind to the evaluator. ViewGrant and EditGrant
// cover membership and share entries beyond ownership; GlobalEditorGated
// marks kinds whose edits additionally require a global admin or editor role.
type Resource interface {
	IsPublic() bool
	OwnerID() string
	ViewGrant(userID string) bool
	EditGrant(userID string) bool
	GlobalEditorGated() bool
}

// CanView reports whether the principal may read the resource.
func CanView(p Principal, r Resource) bool {
	if r.IsPublic() {
		return true
	}
	if p.UserID != "" && p.UserID == r.OwnerID() {
		return true
	}
	return r.ViewGrant(p.UserID)
}

// CanEdit reports whether the principal may modify the resource.
func CanEdit(p Principal, r Resource) bool {
	if r.GlobalEditorGated() && p.Role != models.RoleAdmin && p.Role != models.RoleEditor {
		return false
	}
	if p.UserID != "" && p.UserID == r.OwnerID() {
		return true
	}
	return r.EditGrant(p.UserID)
}

// Space adapts a space. Any member may view; members edit subject to the
// global role gate. Deletion is stricter and handled by CanDeleteSpace.
type Space struct {
	Space *models.Space
}

func (s Space) IsPublic() bool { return s.Space.IsPublic }
func (s Space) OwnerID() string { return s.Space.OwnerID }
func (s Space) GlobalEditorGated() bool { return true }

func (s Space) ViewGrant(userID string) bool {
	return userID != "" && s.Space.IsMember(userID)
}

func (s Space) EditGrant(userID string) bool {
	return userID != "" && s.Space.IsMember(userID)
}

// Page adapts a page together with its containing space, whose membership
// governs access.
type Page struct {
	Page  *models.Page
	Space *models.Space
}

func (p Page) IsPublic() bool {
	return p.Space != nil && p.Space.IsPublic
}

func (p Page) OwnerID() string { return p.Page.AuthorID }
func (p Page) GlobalEditorGated() bool { return true }

func (p Page) ViewGrant(userID string) bool {
	if userID == "" || p.Space == nil {
		return false
	}
	return p.Space.OwnerID == userID || p.Space.IsMember(userID)
}

func (p Page) EditGrant(userID string) bool {
	return p.ViewGrant(userID)
}

// Document adapts a document; share entries carry the grants.
type Document struct {
	Doc *models.Document
}

func (d Document) IsPublic() bool { return d.Doc.IsPublic }
func (d Document) OwnerID() string { return d.Doc.AuthorID }
func (d Document) GlobalEditorGated() bool { return false }

func (d Document) ViewGrant(userID string) bool {
	return userID != "" && d.Doc.SharedWithUser(userID)
}

func (d Document) EditGrant(userID string) bool {
	return userID != "" && d.Doc.HasEditGrant(userID)
}

// Comment adapts a comment: only the author edits.
type Comment struct {
	Comment *models.Comment
}

func (c Comment) IsPublic() bool { return false }
func (c Comment) OwnerID() string { return c.Comment.AuthorID }
func (c Comment) GlobalEditorGated() bool { return false }
func (c Comment) ViewGrant(string) bool { return false }
func (c Comment) EditGrant(string) bool { return false }

// CanCreateSpace restricts space creation to global admins and editors.
func CanCreateSpace(p Principal) bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleEditor
}

// CanDeleteSpace requires the global admin role on top of ownership.
func CanDeleteSpace(p Principal, s *models.Space) bool {
	return p.Role == models.RoleAdmin && p.UserID != "" && p.UserID == s.OwnerID
}

// CanDeleteComment allows the author or a global admin.
func CanDeleteComment(p Principal, c *models.Comment) bool {
	return p.UserID == c.AuthorID || p.Role == models.RoleAdmin
}

// CanManageShares restricts share management to the document author,
// regardless of edit grants.
func CanManageShares(p Principal, d *models.Document) bool {
	return p.UserID == d.AuthorID
}

// CanDeleteTemplate allows the author or a global admin.
func CanDeleteTemplate(p Principal, t *models.Template) bool {
	return p.UserID == t.AuthorID || p.Role == models.RoleAdmin
}
