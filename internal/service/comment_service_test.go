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

type mockCommentRepo struct {
	comments   map[string]*models.Comment
	deletedIDs []string
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[string]*models.Comment)}
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	copied := *comment
	m.comments[comment.ID] = &copied
	return nil
}

func (m *mockCommentRepo) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, ok := m.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *comment
	return &copied, nil
}

func (m *mockCommentRepo) ListByPage(ctx context.Context, pageID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range m.comments {
		if c.PageID == pageID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) Update(ctx context.Context, comment *models.Comment) error {
	if _, ok := m.comments[comment.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *comment
	m.comments[comment.ID] = &copied
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.comments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.comments, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type mockCommentPageRepo struct {
	pages map[string]*models.Page
}

func (m *mockCommentPageRepo) FindByID(ctx context.Context, id string) (*models.Page, error) {
	page, ok := m.pages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return page, nil
}

func newCommentServiceForTest() (*CommentService, *mockCommentRepo, *mockCommentPageRepo, *stubRecorder) {
	comments := newMockCommentRepo()
	pages := &mockCommentPageRepo{pages: map[string]*models.Page{
		"p1": {ID: "p1", Title: "Onboarding", SpaceID: "s1"},
	}}
	recorder := &stubRecorder{}
	svc := NewCommentService(comments, pages, recorder, validator.New(), zap.NewNop())
	return svc, comments, pages, recorder
}

func TestCommentServiceCreate(t *testing.T) {
	svc, _, _, recorder := newCommentServiceForTest()

	principal := authz.Principal{UserID: "u1", Role: models.RoleEditor}
	comment, err := svc.Create(context.Background(), principal, models.CreateCommentRequest{Content: "Nice page", PageID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", comment.AuthorID)
	assert.False(t, comment.IsEdited)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.ActionCommented, recorder.events[0].Action)
	assert.Equal(t, models.TargetPage, recorder.events[0].Target)
	assert.Equal(t, "Onboarding", recorder.events[0].TargetTitle)
}

func TestCommentServiceCreatePageMissing(t *testing.T) {
	svc, _, _, _ := newCommentServiceForTest()

	_, err := svc.Create(context.Background(), authz.Principal{UserID: "u1", Role: models.RoleEditor}, models.CreateCommentRequest{Content: "text", PageID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCommentServiceUpdateAuthorOnly(t *testing.T) {
	svc, comments, _, _ := newCommentServiceForTest()
	comments.comments["c1"] = &models.Comment{ID: "c1", PageID: "p1", AuthorID: "u1", Content: "original"}

	_, err := svc.Update(context.Background(), authz.Principal{UserID: "admin", Role: models.RoleAdmin}, "c1", models.UpdateCommentRequest{Content: "edited"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), authz.Principal{UserID: "u1", Role: models.RoleViewer}, "c1", models.UpdateCommentRequest{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.True(t, updated.IsEdited)
}

func TestCommentServiceDeleteAuthorOrAdmin(t *testing.T) {
	svc, comments, _, _ := newCommentServiceForTest()
	comments.comments["c1"] = &models.Comment{ID: "c1", PageID: "p1", AuthorID: "u1"}
	comments.comments["c2"] = &models.Comment{ID: "c2", PageID: "p1", AuthorID: "u1"}

	err := svc.Delete(context.Background(), authz.Principal{UserID: "stranger", Role: models.RoleEditor}, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), authz.Principal{UserID: "u1", Role: models.RoleViewer}, "c1"))
	require.NoError(t, svc.Delete(context.Background(), authz.Principal{UserID: "root", Role: models.RoleAdmin}, "c2"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, comments.deletedIDs)
}
