package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type spaceRepository interface {
	Create(ctx context.Context, space *models.Space) error
	FindByID(ctx context.Context, id string) (*models.Space, error)
	FindByKey(ctx context.Context, key string) (*models.Space, error)
	ListForUser(ctx context.Context, userID string) ([]models.Space, error)
	Update(ctx context.Context, space *models.Space) error
	DeleteCascade(ctx context.Context, id string) error
}

type activityRecorder interface {
	Record(event ActivityEvent)
}

// SpaceService provides space use cases.
type SpaceService struct {
	repo       spaceRepository
	activities activityRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSpaceService constructs a SpaceService instance.
func NewSpaceService(repo spaceRepository, activities activityRecorder, validate *validator.Validate, logger *zap.Logger) *SpaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SpaceService{repo: repo, activities: activities, validator: validate, logger: logger}
}

// Create makes a new space owned by the principal. Only global admins
// and editors may create spaces. The key is uppercased and must be
// globally unique.
func (s *SpaceService) Create(ctx context.Context, principal authz.Principal, req models.CreateSpaceRequest) (*models.Space, error) {
	if !authz.CanCreateSpace(principal) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "viewers cannot create spaces")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid space payload")
	}

	key := strings.ToUpper(strings.TrimSpace(req.Key))
	if _, err := s.repo.FindByKey(ctx, key); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "space key already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check space key")
	}

	space := &models.Space{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Key:         key,
		OwnerID:     principal.UserID,
		IsPublic:    req.IsPublic,
	}
	if err := s.repo.Create(ctx, space); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create space")
	}

	created, err := s.repo.FindByID(ctx, space.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created space")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionCreated,
		Target:      models.TargetSpace,
		TargetID:    created.ID,
		TargetTitle: created.Name,
		SpaceID:     &created.ID,
	})
	return created, nil
}

// List returns the spaces visible to the principal.
func (s *SpaceService) List(ctx context.Context, principal authz.Principal) ([]models.Space, error) {
	spaces, err := s.repo.ListForUser(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list spaces")
	}
	return spaces, nil
}

// Get returns one space if the principal may view it.
func (s *SpaceService) Get(ctx context.Context, principal authz.Principal, id string) (*models.Space, error) {
	space, err := s.findSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(principal, authz.Space{Space: space}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}
	return space, nil
}

// Update applies the mutable space attributes. The key never changes.
func (s *SpaceService) Update(ctx context.Context, principal authz.Principal, id string, req models.UpdateSpaceRequest) (*models.Space, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid space payload")
	}

	space, err := s.findSpace(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(principal, authz.Space{Space: space}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	if req.Name != nil {
		space.Name = *req.Name
	}
	if req.Description != nil {
		space.Description = *req.Description
	}
	if req.IsPublic != nil {
		space.IsPublic = *req.IsPublic
	}

	if err := s.repo.Update(ctx, space); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "space not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update space")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionUpdated,
		Target:      models.TargetSpace,
		TargetID:    space.ID,
		TargetTitle: space.Name,
		SpaceID:     &space.ID,
	})
	return space, nil
}

// Delete removes a space and everything in it. Requires the global admin
// role in addition to owning the space.
func (s *SpaceService) Delete(ctx context.Context, principal authz.Principal, id string) error {
	space, err := s.findSpace(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteSpace(principal, space) {
		return appErrors.Clone(appErrors.ErrForbidden, "only an admin owner can delete a space")
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete space")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionDeleted,
		Target:      models.TargetSpace,
		TargetID:    space.ID,
		TargetTitle: space.Name,
	})
	return nil
}

func (s *SpaceService) findSpace(ctx context.Context, id string) (*models.Space, error) {
	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "space not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space")
	}
	return space, nil
}
