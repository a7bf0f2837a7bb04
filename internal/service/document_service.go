package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/mentions"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document, mentionIDs []string) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListForUser(ctx context.Context, userID string) ([]models.Document, error)
	ApplyUpdate(ctx context.Context, doc *models.Document, version *models.DocumentVersion, mentionIDs []string, newShares []models.DocumentShare) error
	ReplaceShare(ctx context.Context, docID, userID string, permission models.SharePermission) error
	Search(ctx context.Context, userID, q string) ([]models.Document, error)
}

type documentUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByNames(ctx context.Context, names []string) ([]models.User, error)
}

// DocumentService provides document use cases. Content mentions written as
// @Name resolve against exact user names; resolved users get a view share
// automatically, unresolved handles are dropped.
type DocumentService struct {
	docs       documentRepository
	users      documentUserRepository
	activities activityRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewDocumentService constructs a DocumentService instance.
func NewDocumentService(docs documentRepository, users documentUserRepository, activities activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentService{docs: docs, users: users, activities: activities, metrics: metrics, validator: validate, logger: logger}
}

// Create makes a new document with version 1 and view shares for every
// mentioned user.
func (s *DocumentService) Create(ctx context.Context, principal authz.Principal, req models.CreateDocumentRequest) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	mentioned, err := s.resolveMentions(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	modifier := principal.UserID
	doc := &models.Document{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Content:        req.Content,
		AuthorID:       principal.UserID,
		IsPublic:       req.IsPublic,
		CurrentVersion: 1,
		LastModifiedBy: &modifier,
	}

	mentionIDs := make([]string, 0, len(mentioned))
	for _, user := range mentioned {
		mentionIDs = append(mentionIDs, user.ID)
		doc.SharedWith = append(doc.SharedWith, models.DocumentShare{
			DocumentID: doc.ID,
			UserID:     user.ID,
			Permission: models.PermissionView,
		})
	}

	if err := s.docs.Create(ctx, doc, mentionIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}

	created, err := s.docs.FindByID(ctx, doc.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created document")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionCreated,
		Target:      models.TargetDocument,
		TargetID:    created.ID,
		TargetTitle: created.Title,
	})
	return created, nil
}

// List returns the documents the principal may see, most recently updated
// first.
func (s *DocumentService) List(ctx context.Context, principal authz.Principal) ([]models.Document, error) {
	docs, err := s.docs.ListForUser(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Get returns one document if the principal may view it.
func (s *DocumentService) Get(ctx context.Context, principal authz.Principal, id string) (*models.Document, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(principal, authz.Document{Doc: doc}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}
	return doc, nil
}

// GetPublic returns a document without authentication; anything not public
// reads as not found.
func (s *DocumentService) GetPublic(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsPublic {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	doc.Versions = nil
	doc.SharedWith = []models.DocumentShare{}
	doc.Mentions = nil
	return doc, nil
}

// Update applies an edit. The superseded content is appended to the version
// history under the previous version number, the live row moves to the next
// one, and newly mentioned users gain view shares without ever touching
// existing grants.
func (s *DocumentService) Update(ctx context.Context, principal authz.Principal, id string, req models.UpdateDocumentRequest, editorName string) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(principal, authz.Document{Doc: doc}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "edit permission denied")
	}

	mentioned, err := s.resolveMentions(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	priorAuthor := doc.AuthorID
	if doc.LastModifiedBy != nil {
		priorAuthor = *doc.LastModifiedBy
	}
	version := &models.DocumentVersion{
		DocumentID:    doc.ID,
		Content:       doc.Content,
		AuthorID:      priorAuthor,
		Changes:       fmt.Sprintf("Updated by %s", editorName),
		VersionNumber: doc.CurrentVersion,
	}

	mentionIDs := make([]string, 0, len(mentioned))
	var newShares []models.DocumentShare
	for _, user := range mentioned {
		mentionIDs = append(mentionIDs, user.ID)
		if !doc.SharedWithUser(user.ID) {
			newShares = append(newShares, models.DocumentShare{
				DocumentID: doc.ID,
				UserID:     user.ID,
				Permission: models.PermissionView,
			})
		}
	}

	modifier := principal.UserID
	doc.Title = req.Title
	doc.Content = req.Content
	doc.IsPublic = req.IsPublic
	doc.LastModifiedBy = &modifier
	doc.CurrentVersion++

	if err := s.docs.ApplyUpdate(ctx, doc, version, mentionIDs, newShares); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}

	updated, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load updated document")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionUpdated,
		Target:      models.TargetDocument,
		TargetID:    updated.ID,
		TargetTitle: updated.Title,
	})
	return updated, nil
}

// Share grants or replaces one user's access. Author only; unlike mention
// auto-shares this may downgrade an existing grant.
func (s *DocumentService) Share(ctx context.Context, principal authz.Principal, id string, req models.ShareDocumentRequest) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}

	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageShares(principal, doc) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can manage sharing")
	}

	user, err := s.users.FindByEmail(ctx, req.UserEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.docs.ReplaceShare(ctx, id, user.ID, req.Permission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update share")
	}

	return s.findDocument(ctx, id)
}

// Search runs a ranked full-text search over accessible documents.
func (s *DocumentService) Search(ctx context.Context, principal authz.Principal, q string) ([]models.Document, error) {
	started := time.Now()
	docs, err := s.docs.Search(ctx, principal.UserID, q)
	s.metrics.ObserveSearch(time.Since(started))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search documents")
	}
	return docs, nil
}

// resolveMentions extracts @Name handles and resolves them against exact
// user names. Unresolved handles are silently dropped.
func (s *DocumentService) resolveMentions(ctx context.Context, content string) ([]models.User, error) {
	handles := mentions.Extract(content)
	if len(handles) == 0 {
		return nil, nil
	}
	users, err := s.users.FindByNames(ctx, handles)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve mentions")
	}
	return users, nil
}

func (s *DocumentService) findDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}
