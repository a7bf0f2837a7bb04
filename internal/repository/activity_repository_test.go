package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhub/kb-api/internal/models"
)

var activityColumns = []string{
	"id", "user_id", "action", "target", "target_id", "target_title", "space_id", "metadata", "created_at",
	"user_name", "user_email", "space_name", "space_key",
}

func TestActivityCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))

	activity := &models.Activity{
		UserID:      "u1",
		Action:      models.ActionCreated,
		Target:      models.TargetPage,
		TargetID:    "p1",
		TargetTitle: "Onboarding",
	}
	err := repo.Create(context.Background(), activity)
	require.NoError(t, err)
	assert.NotEmpty(t, activity.ID)
	assert.False(t, activity.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	since := now.Add(-24 * time.Hour)
	rows := sqlmock.NewRows(activityColumns).
		AddRow("a1", "u1", string(models.ActionUpdated), string(models.TargetPage), "p1", "Onboarding", "s1", nil, now,
			"Alice", "alice@example.com", "People", "PEOPLE")
	mock.ExpectQuery("SELECT (.+) FROM activities a").
		WithArgs("u1", since, 20).
		WillReturnRows(rows)

	activities, err := repo.List(context.Background(), models.ActivityFilter{UserID: "u1", Since: &since, Limit: 20})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.NotNil(t, activities[0].User)
	assert.Equal(t, "Alice", activities[0].User.Name)
	require.NotNil(t, activities[0].Space)
	assert.Equal(t, "PEOPLE", activities[0].Space.Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListWithoutSpace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(activityColumns).
		AddRow("a1", "u1", string(models.ActionCreated), string(models.TargetDocument), "d1", "Notes", nil, nil, now,
			"Alice", "alice@example.com", nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM activities a").WillReturnRows(rows)

	activities, err := repo.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Nil(t, activities[0].Space)
}
