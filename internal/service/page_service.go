package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type pageRepository interface {
	Create(ctx context.Context, page *models.Page) error
	FindByID(ctx context.Context, id string) (*models.Page, error)
	List(ctx context.Context, filter models.PageFilter) ([]models.Page, error)
	Update(ctx context.Context, page *models.Page) error
	IncrementViewCount(ctx context.Context, id string) error
	RecordVersion(ctx context.Context, version *models.PageVersion) (int, error)
	Versions(ctx context.Context, pageID string) ([]models.PageVersion, error)
	Search(ctx context.Context, q, spaceID string) ([]models.Page, error)
	Suggestions(ctx context.Context, q string) ([]string, error)
	DeleteCascade(ctx context.Context, id string) error
}

type pageSpaceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Space, error)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a page title.
func Slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// PageService provides page use cases: CRUD, version history, full-text
// search and title suggestions.
type PageService struct {
	pages      pageRepository
	spaces     pageSpaceRepository
	activities activityRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPageService constructs a PageService instance.
func NewPageService(pages pageRepository, spaces pageSpaceRepository, activities activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PageService{pages: pages, spaces: spaces, activities: activities, metrics: metrics, validator: validate, logger: logger}
}

// Create makes a new published page and records version 1 of its ledger.
func (s *PageService) Create(ctx context.Context, principal authz.Principal, req models.CreatePageRequest) (*models.Page, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid page payload")
	}

	space, err := s.spaces.FindByID(ctx, req.SpaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "space not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space")
	}
	if !authz.CanEdit(principal, authz.Space{Space: space}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	modifier := principal.UserID
	page := &models.Page{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Content:        req.Content,
		Slug:           Slugify(req.Title),
		SpaceID:        req.SpaceID,
		AuthorID:       principal.UserID,
		ParentID:       req.ParentID,
		Tags:           req.Tags,
		Status:         models.PageStatusPublished,
		LastModifiedBy: &modifier,
	}
	if page.Tags == nil {
		page.Tags = []string{}
	}
	if err := s.pages.Create(ctx, page); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create page")
	}

	if _, err := s.pages.RecordVersion(ctx, &models.PageVersion{
		PageID:     page.ID,
		Title:      page.Title,
		Content:    page.Content,
		AuthorID:   principal.UserID,
		ChangeNote: "Initial version",
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record initial version")
	}

	created, err := s.pages.FindByID(ctx, page.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created page")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionCreated,
		Target:      models.TargetPage,
		TargetID:    created.ID,
		TargetTitle: created.Title,
		SpaceID:     &created.SpaceID,
	})
	return created, nil
}

// List returns pages matching the filter, newest first.
func (s *PageService) List(ctx context.Context, filter models.PageFilter) ([]models.Page, error) {
	pages, err := s.pages.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pages")
	}
	return pages, nil
}

// Get returns a page the principal may view and bumps its view counter.
func (s *PageService) Get(ctx context.Context, principal authz.Principal, id string) (*models.Page, error) {
	page, space, err := s.loadPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(principal, authz.Page{Page: page, Space: space}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	if err := s.pages.IncrementViewCount(ctx, id); err != nil {
		s.logger.Warn("failed to increment view count", zap.String("page_id", id), zap.Error(err))
	}
	page.ViewCount++
	return page, nil
}

// Update applies an edit and appends a version ledger entry. The snapshot
// captures the incoming title and content, falling back to the current
// values for fields the request leaves out.
func (s *PageService) Update(ctx context.Context, principal authz.Principal, id string, req models.UpdatePageRequest) (*models.Page, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid page payload")
	}

	page, space, err := s.loadPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(principal, authz.Page{Page: page, Space: space}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	version := &models.PageVersion{
		PageID:     id,
		Title:      page.Title,
		Content:    page.Content,
		AuthorID:   principal.UserID,
		ChangeNote: "Updated page",
	}
	if req.Title != nil {
		version.Title = *req.Title
		page.Title = *req.Title
		page.Slug = Slugify(*req.Title)
	}
	if req.Content != nil {
		version.Content = *req.Content
		page.Content = *req.Content
	}
	if req.ChangeNote != "" {
		version.ChangeNote = req.ChangeNote
	}
	if req.Tags != nil {
		page.Tags = req.Tags
	}
	if req.Status != nil {
		page.Status = *req.Status
	}
	modifier := principal.UserID
	page.LastModifiedBy = &modifier

	if _, err := s.pages.RecordVersion(ctx, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record page version")
	}
	if err := s.pages.Update(ctx, page); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update page")
	}

	updated, err := s.pages.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load updated page")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionUpdated,
		Target:      models.TargetPage,
		TargetID:    updated.ID,
		TargetTitle: updated.Title,
		SpaceID:     &updated.SpaceID,
	})
	return updated, nil
}

// Delete removes a page, its direct children and all related versions
// and comments.
func (s *PageService) Delete(ctx context.Context, principal authz.Principal, id string) error {
	page, space, err := s.loadPage(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanEdit(principal, authz.Page{Page: page, Space: space}) {
		return appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	if err := s.pages.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete page")
	}

	s.activities.Record(ActivityEvent{
		UserID:      principal.UserID,
		Action:      models.ActionDeleted,
		Target:      models.TargetPage,
		TargetID:    page.ID,
		TargetTitle: page.Title,
		SpaceID:     &page.SpaceID,
	})
	return nil
}

// Versions returns the ledger entries for a page, newest first.
func (s *PageService) Versions(ctx context.Context, principal authz.Principal, id string) ([]models.PageVersion, error) {
	page, space, err := s.loadPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(principal, authz.Page{Page: page, Space: space}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "access denied")
	}

	versions, err := s.pages.Versions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list page versions")
	}
	return versions, nil
}

// Search runs a ranked full-text search, optionally scoped to one space.
func (s *PageService) Search(ctx context.Context, q, spaceID string) ([]models.Page, error) {
	if strings.TrimSpace(q) == "" {
		return []models.Page{}, nil
	}
	started := time.Now()
	pages, err := s.pages.Search(ctx, q, spaceID)
	s.metrics.ObserveSearch(time.Since(started))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search pages")
	}
	return pages, nil
}

// Suggestions returns up to five unique title and tag completions. Queries
// shorter than two characters yield an empty list.
func (s *PageService) Suggestions(ctx context.Context, q string) ([]string, error) {
	if len(strings.TrimSpace(q)) < 2 {
		return []string{}, nil
	}
	suggestions, err := s.pages.Suggestions(ctx, q)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load suggestions")
	}
	return suggestions, nil
}

func (s *PageService) loadPage(ctx context.Context, id string) (*models.Page, *models.Space, error) {
	page, err := s.pages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load page")
	}

	space, err := s.spaces.FindByID(ctx, page.SpaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return page, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load space")
	}
	return page, space, nil
}
