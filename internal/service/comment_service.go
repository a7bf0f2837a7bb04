package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPage(ctx context.Context, pageID string) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
}

type commentPageRepository interface {
	FindByID(ctx context.Context, id string) (*models.Page, error)
}

// CommentService provides page comment use cases.
type CommentService struct {
	comments   commentRepository
	pages      commentPageRepository
	activities activityRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(comments commentRepository, pages commentPageRepository, activities activityRecorder, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommentService{comments: comments, pages: pages, activities: activities, validator: validate, logger: logger}
}

// Create posts a comment on a page.
func (s *CommentService) Create(ctx context.Context, principal authz.Principal, req models.CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	page, err := s.pages.FindByID(ctx, req.PageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load page")
	}

	comment := &models.Comment{
		ID:       uuid.NewString(),
		Content:  req.Content,
		PageID:   req.PageID,
		AuthorID: principal.UserID,
		ParentID: req.ParentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}

	created, err := s.comments.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created comment")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionCommented,
		Target:      models.TargetPage,
		TargetID:    page.ID,
		TargetTitle: page.Title,
		SpaceID:     &page.SpaceID,
	})
	return created, nil
}

// ListByPage returns the comments of a page, oldest first.
func (s *CommentService) ListByPage(ctx context.Context, pageID string) ([]models.Comment, error) {
	comments, err := s.comments.ListByPage(ctx, pageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// Update edits a comment's content. Author only; the edited flag sticks.
func (s *CommentService) Update(ctx context.Context, principal authz.Principal, id string, req models.UpdateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	comment, err := s.findComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(principal, authz.Comment{Comment: comment}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized")
	}

	comment.Content = req.Content
	comment.IsEdited = true
	if err := s.comments.Update(ctx, comment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comment")
	}

	return s.findComment(ctx, id)
}

// Delete removes a comment. Allowed for the author or a global admin.
func (s *CommentService) Delete(ctx context.Context, principal authz.Principal, id string) error {
	comment, err := s.findComment(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteComment(principal, comment) {
		return appErrors.Clone(appErrors.ErrForbidden, "not authorized")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}

func (s *CommentService) findComment(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	return comment, nil
}
