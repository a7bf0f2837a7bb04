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

type templateRepository interface {
	Create(ctx context.Context, template *models.Template) error
	FindByID(ctx context.Context, id string) (*models.Template, error)
	ListForUser(ctx context.Context, userID string, category models.TemplateCategory) ([]models.Template, error)
	Update(ctx context.Context, template *models.Template) error
	IncrementUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// TemplateService provides reusable content blueprint use cases.
type TemplateService struct {
	repo       templateRepository
	activities activityRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTemplateService constructs a TemplateService instance.
func NewTemplateService(repo templateRepository, activities activityRecorder, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TemplateService{repo: repo, activities: activities, validator: validate, logger: logger}
}

// Create makes a new template.
func (s *TemplateService) Create(ctx context.Context, principal authz.Principal, req models.CreateTemplateRequest) (*models.Template, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	template := &models.Template{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		AuthorID:    principal.UserID,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
	}
	if template.Tags == nil {
		template.Tags = []string{}
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}

	created, err := s.findTemplate(ctx, template.ID)
	if err != nil {
		return nil, err
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionCreated,
		Target:      models.TargetTemplate,
		TargetID:    created.ID,
		TargetTitle: created.Name,
	})
	return created, nil
}

// List returns public templates plus the principal's own, most used first.
func (s *TemplateService) List(ctx context.Context, principal authz.Principal, category models.TemplateCategory) ([]models.Template, error) {
	if category != "" {
		if err := s.validator.Var(category, "oneof=meeting project documentation process other"); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid template category")
		}
	}
	templates, err := s.repo.ListForUser(ctx, principal.UserID, category)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	return templates, nil
}

// Get returns one template.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.Template, error) {
	return s.findTemplate(ctx, id)
}

// Update applies the mutable template attributes. Author only.
func (s *TemplateService) Update(ctx context.Context, principal authz.Principal, id string, req models.UpdateTemplateRequest) (*models.Template, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	template, err := s.findTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if template.AuthorID != principal.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized")
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.Content != nil {
		template.Content = *req.Content
	}
	if req.Category != nil {
		template.Category = *req.Category
	}
	if req.IsPublic != nil {
		template.IsPublic = *req.IsPublic
	}
	if req.Tags != nil {
		template.Tags = req.Tags
	}

	if err := s.repo.Update(ctx, template); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}
	return s.findTemplate(ctx, id)
}

// Use returns the template content and bumps the usage counter.
func (s *TemplateService) Use(ctx context.Context, principal authz.Principal, id string) (string, error) {
	template, err := s.findTemplate(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.repo.IncrementUsage(ctx, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to increment template usage", zap.String("template_id", id), zap.Error(err))
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionViewed,
		Target:      models.TargetTemplate,
		TargetID:    template.ID,
		TargetTitle: template.Name,
	})
	return template.Content, nil
}

// Delete removes a template. Allowed for the author or a global admin.
func (s *TemplateService) Delete(ctx context.Context, principal authz.Principal, id string) error {
	template, err := s.findTemplate(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteTemplate(principal, template) {
		return appErrors.Clone(appErrors.ErrForbidden, "not authorized")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete template")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionDeleted,
		Target:      models.TargetTemplate,
		TargetID:    template.ID,
		TargetTitle: template.Name,
	})
	return nil
}

func (s *TemplateService) findTemplate(ctx context.Context, id string) (*models.Template, error) {
	template, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	return template, nil
}
