package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
)

type mockPageRepo struct {
	pages      map[string]*models.Page
	versions   []*models.PageVersion
	viewBumps  []string
	deletedIDs []string
}

func newMockPageRepo() *mockPageRepo {
	return &mockPageRepo{pages: make(map[string]*models.Page)}
}

func (m *mockPageRepo) Create(ctx context.Context, page *models.Page) error {
	copied := *page
	m.pages[page.ID] = &copied
	return nil
}

func (m *mockPageRepo) FindByID(ctx context.Context, id string) (*models.Page, error) {
	page, ok := m.pages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *page
	return &copied, nil
}

func (m *mockPageRepo) List(ctx context.Context, filter models.PageFilter) ([]models.Page, error) {
	var out []models.Page
	for _, p := range m.pages {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPageRepo) Update(ctx context.Context, page *models.Page) error {
	copied := *page
	m.pages[page.ID] = &copied
	return nil
}

func (m *mockPageRepo) IncrementViewCount(ctx context.Context, id string) error {
	m.viewBumps = append(m.viewBumps, id)
	if page, ok := m.pages[id]; ok {
		page.ViewCount++
	}
	return nil
}

func (m *mockPageRepo) RecordVersion(ctx context.Context, version *models.PageVersion) (int, error) {
	version.Version = len(m.versions) + 1
	m.versions = append(m.versions, version)
	return version.Version, nil
}

func (m *mockPageRepo) Versions(ctx context.Context, pageID string) ([]models.PageVersion, error) {
	var out []models.PageVersion
	for i := len(m.versions) - 1; i >= 0; i-- {
		if m.versions[i].PageID == pageID {
			out = append(out, *m.versions[i])
		}
	}
	return out, nil
}

func (m *mockPageRepo) Search(ctx context.Context, q, spaceID string) ([]models.Page, error) {
	return nil, nil
}

func (m *mockPageRepo) Suggestions(ctx context.Context, q string) ([]string, error) {
	return []string{"Onboarding"}, nil
}

func (m *mockPageRepo) DeleteCascade(ctx context.Context, id string) error {
	delete(m.pages, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type mockPageSpaceRepo struct {
	spaces map[string]*models.Space
}

func (m *mockPageSpaceRepo) FindByID(ctx context.Context, id string) (*models.Space, error) {
	space, ok := m.spaces[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return space, nil
}

func newPageServiceForTest(space *models.Space) (*PageService, *mockPageRepo, *stubRecorder) {
	pages := newMockPageRepo()
	spaces := &mockPageSpaceRepo{spaces: map[string]*models.Space{}}
	if space != nil {
		spaces.spaces[space.ID] = space
	}
	recorder := &stubRecorder{}
	svc := NewPageService(pages, spaces, recorder, nil, validator.New(), zap.NewNop())
	return svc, pages, recorder
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Getting Started", "getting-started"},
		{"  API & SDK Guide!  ", "api-sdk-guide"},
		{"Rollout 2024 / Q3", "rollout-2024-q3"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title), tt.title)
	}
}

func TestPageServiceCreateRecordsInitialVersion(t *testing.T) {
	space := &models.Space{ID: "s1", Key: "ENG", OwnerID: "owner-1"}
	svc, pages, recorder := newPageServiceForTest(space)

	principal := authz.Principal{UserID: "owner-1", Role: models.RoleEditor}
	page, err := svc.Create(context.Background(), principal, models.CreatePageRequest{
		Title:   "Getting Started",
		Content: "Welcome",
		SpaceID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "getting-started", page.Slug)
	assert.Equal(t, models.PageStatusPublished, page.Status)

	require.Len(t, pages.versions, 1)
	assert.Equal(t, "Initial version", pages.versions[0].ChangeNote)
	assert.Equal(t, 1, pages.versions[0].Version)
	assert.Equal(t, "Welcome", pages.versions[0].Content)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.ActionCreated, recorder.events[0].Action)
	require.NotNil(t, recorder.events[0].SpaceID)
	assert.Equal(t, "s1", *recorder.events[0].SpaceID)
}

func TestPageServiceCreateDeniedForViewer(t *testing.T) {
	space := &models.Space{
		ID: "s1", Key: "ENG", OwnerID: "owner-1",
		Members: []models.SpaceMember{{SpaceID: "s1", UserID: "viewer", Role: models.SpaceRoleViewer}},
	}
	svc, _, _ := newPageServiceForTest(space)

	_, err := svc.Create(context.Background(), authz.Principal{UserID: "viewer", Role: models.RoleViewer}, models.CreatePageRequest{
		Title:   "Draft",
		Content: "text",
		SpaceID: "s1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPageServiceUpdateSnapshotsIncomingContent(t *testing.T) {
	space := &models.Space{ID: "s1", Key: "ENG", OwnerID: "owner-1"}
	svc, pages, _ := newPageServiceForTest(space)
	pages.pages["p1"] = &models.Page{ID: "p1", Title: "Old Title", Content: "old body", Slug: "old-title", SpaceID: "s1", AuthorID: "owner-1", Status: models.PageStatusPublished}

	title := "New Title"
	updated, err := svc.Update(context.Background(), authz.Principal{UserID: "owner-1", Role: models.RoleEditor}, "p1", models.UpdatePageRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new-title", updated.Slug)

	require.Len(t, pages.versions, 1)
	version := pages.versions[0]
	assert.Equal(t, "New Title", version.Title)
	assert.Equal(t, "old body", version.Content)
	assert.Equal(t, "Updated page", version.ChangeNote)
}

func TestPageServiceUpdateCustomChangeNote(t *testing.T) {
	space := &models.Space{ID: "s1", Key: "ENG", OwnerID: "owner-1"}
	svc, pages, _ := newPageServiceForTest(space)
	pages.pages["p1"] = &models.Page{ID: "p1", Title: "Title", Content: "body", SpaceID: "s1", AuthorID: "owner-1", Status: models.PageStatusPublished}

	content := "revised body"
	_, err := svc.Update(context.Background(), authz.Principal{UserID: "owner-1", Role: models.RoleEditor}, "p1", models.UpdatePageRequest{Content: &content, ChangeNote: "Rewrote intro"})
	require.NoError(t, err)

	require.Len(t, pages.versions, 1)
	assert.Equal(t, "revised body", pages.versions[0].Content)
	assert.Equal(t, "Rewrote intro", pages.versions[0].ChangeNote)
	assert.Equal(t, "revised body", pages.pages["p1"].Content)
}

func TestPageServiceGetBumpsViewCount(t *testing.T) {
	space := &models.Space{ID: "s1", Key: "ENG", OwnerID: "owner-1", IsPublic: true}
	svc, pages, _ := newPageServiceForTest(space)
	pages.pages["p1"] = &models.Page{ID: "p1", Title: "Title", SpaceID: "s1", AuthorID: "owner-1", ViewCount: 7}

	page, err := svc.Get(context.Background(), authz.Principal{UserID: "reader", Role: models.RoleViewer}, "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, page.ViewCount)
	assert.Equal(t, []string{"p1"}, pages.viewBumps)
}

func TestPageServiceGetDeniedOnPrivateSpace(t *testing.T) {
	space := &models.Space{ID: "s1", Key: "ENG", OwnerID: "owner-1", IsPublic: false}
	svc, pages, _ := newPageServiceForTest(space)
	pages.pages["p1"] = &models.Page{ID: "p1", Title: "Title", SpaceID: "s1", AuthorID: "owner-1"}

	_, err := svc.Get(context.Background(), authz.Principal{UserID: "stranger", Role: models.RoleEditor}, "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pages.viewBumps)
}

func TestPageServiceGetNotFound(t *testing.T) {
	svc, _, _ := newPageServiceForTest(nil)

	_, err := svc.Get(context.Background(), authz.Principal{UserID: "reader", Role: models.RoleViewer}, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPageServiceSearchEmptyQuery(t *testing.T) {
	svc, _, _ := newPageServiceForTest(nil)

	pages, err := svc.Search(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestPageServiceSearchObservesDuration(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewPageService(newMockPageRepo(), &mockPageSpaceRepo{spaces: map[string]*models.Space{}}, &stubRecorder{}, metrics, validator.New(), zap.NewNop())

	_, err := svc.Search(context.Background(), "onboarding", "")
	require.NoError(t, err)

	families, err := metrics.registry.Gather()
	require.NoError(t, err)
	var observed uint64
	for _, family := range families {
		if family.GetName() == "search_duration_seconds" {
			observed = family.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), observed)
}

func TestPageServiceSuggestionsShortQuery(t *testing.T) {
	svc, _, _ := newPageServiceForTest(nil)

	suggestions, err := svc.Suggestions(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	suggestions, err = svc.Suggestions(context.Background(), "on")
	require.NoError(t, err)
	assert.Equal(t, []string{"Onboarding"}, suggestions)
}
