package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhub/kb-api/internal/models"
)

var templateColumns = []string{
	"id", "name", "description", "content", "category", "author_id", "is_public", "usage_count",
	"tags", "created_at", "updated_at", "author_name", "author_email",
}

func TestTemplateListForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(templateColumns).
		AddRow("t1", "Retro", "Retro board", "## Went well", string(models.TemplateCategoryMeeting), "u1", true, 12, "{retro}", now, now, "Alice", "alice@example.com").
		AddRow("t2", "Standup", "Daily notes", "## Yesterday", string(models.TemplateCategoryMeeting), "u2", false, 4, "{standup}", now, now, "Bob", "bob@example.com")
	mock.ExpectQuery("SELECT (.+) FROM templates t").
		WithArgs("u2", models.TemplateCategoryMeeting).
		WillReturnRows(rows)

	templates, err := repo.ListForUser(context.Background(), "u2", models.TemplateCategoryMeeting)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, 12, templates[0].UsageCount)
	require.NotNil(t, templates[0].Author)
	assert.Equal(t, "Alice", templates[0].Author.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateIncrementUsage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectExec("UPDATE templates SET usage_count = usage_count").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.IncrementUsage(context.Background(), "t1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateIncrementUsageMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectExec("UPDATE templates SET usage_count = usage_count").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementUsage(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTemplateDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectExec("DELETE FROM templates").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
