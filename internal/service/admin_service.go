package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Recent(ctx context.Context, limit int) ([]models.User, error)
	CountByRole(ctx context.Context) ([]models.RoleCount, error)
	Count(ctx context.Context) (int, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	DeleteCascade(ctx context.Context, id string) error
}

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

type adminCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const statsCacheKey = "admin:stats"

// AdminService provides the admin panel use cases: user management and
// aggregate statistics. Stats are served through a short-lived cache that
// is dropped whenever a user mutation goes through.
type AdminService struct {
	users     adminUserRepository
	pages     entityCounter
	spaces    entityCounter
	cache     adminCache
	validator *validator.Validate
	logger    *zap.Logger
	statsTTL  time.Duration
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(users adminUserRepository, pages, spaces entityCounter, cache adminCache, validate *validator.Validate, logger *zap.Logger, statsTTL time.Duration) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &AdminService{users: users, pages: pages, spaces: spaces, cache: cache, validator: validate, logger: logger, statsTTL: statsTTL}
}

// ListUsers returns users matching the filter with pagination metadata.
func (s *AdminService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Stats aggregates system-wide counts for the dashboard.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	if s.cache != nil {
		var cached models.AdminStats
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats := &models.AdminStats{}
	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	if stats.TotalPages, err = s.pages.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pages")
	}
	if stats.TotalSpaces, err = s.spaces.Count(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count spaces")
	}
	if stats.UsersByRole, err = s.users.CountByRole(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users by role")
	}
	if stats.RecentUsers, err = s.users.Recent(ctx, 5); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent users")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// UpdateRole changes a user's global role.
func (s *AdminService) UpdateRole(ctx context.Context, id string, req models.UpdateRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	if err := s.users.UpdateRole(ctx, id, req.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	s.invalidateStats(ctx)

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// DeleteUser removes an account together with its pages, activities and
// sessions. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, principal authz.Principal, id string) error {
	if principal.UserID == id {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}

	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.users.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *AdminService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
