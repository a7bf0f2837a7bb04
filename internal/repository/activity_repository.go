package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teamhub/kb-api/internal/models"
)

// ActivityRepository provides database access for the activity stream.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

type activityRow struct {
	models.Activity
	UserName  string         `db:"user_name"`
	UserEmail string         `db:"user_email"`
	SpaceName sql.NullString `db:"space_name"`
	SpaceKey  sql.NullString `db:"space_key"`
}

func (row activityRow) toActivity() models.Activity {
	a := row.Activity
	a.User = &models.UserRef{ID: a.UserID, Name: row.UserName, Email: row.UserEmail}
	if a.SpaceID != nil && row.SpaceName.Valid {
		a.Space = &models.SpaceRef{ID: *a.SpaceID, Name: row.SpaceName.String, Key: row.SpaceKey.String}
	}
	return a
}

const activitySelect = `SELECT a.id, a.user_id, a.action, a.target, a.target_id, a.target_title, a.space_id, a.metadata, a.created_at,
	u.name AS user_name, u.email AS user_email,
	s.name AS space_name, s.key AS space_key
	FROM activities a
	JOIN users u ON u.id = a.user_id
	LEFT JOIN spaces s ON s.id = a.space_id`

// Create inserts a new activity entry.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO activities (id, user_id, action, target, target_id, target_title, space_id, metadata, created_at)
		VALUES (:id, :user_id, :action, :target, :target_id, :target_title, :space_id, :metadata, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// List returns activity entries matching the filter, newest first.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	query := activitySelect
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", argIndex))
		args = append(args, filter.UserID)
		argIndex++
	}
	if filter.Since != nil {
		conditions = append(conditions, fmt.Sprintf("a.created_at >= $%d", argIndex))
		args = append(args, *filter.Since)
		argIndex++
	}
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for _, c := range conditions[1:] {
			query += " AND " + c
		}
	}
	query += " ORDER BY a.created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	activities := make([]models.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toActivity())
	}
	return activities, nil
}

