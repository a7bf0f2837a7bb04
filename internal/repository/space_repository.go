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

// SpaceRepository provides database access for spaces and their members.
type SpaceRepository struct {
	db *sqlx.DB
}

// NewSpaceRepository creates a new instance of SpaceRepository.
func NewSpaceRepository(db *sqlx.DB) *SpaceRepository {
	return &SpaceRepository{db: db}
}

type spaceRow struct {
	models.Space
	OwnerName  string `db:"owner_name"`
	OwnerEmail string `db:"owner_email"`
}

func (row spaceRow) toSpace() models.Space {
	space := row.Space
	space.Owner = &models.UserRef{ID: space.OwnerID, Name: row.OwnerName, Email: row.OwnerEmail}
	return space
}

const spaceSelect = `SELECT s.id, s.name, s.description, s.key, s.owner_id, s.is_public, s.created_at, s.updated_at,
	u.name AS owner_name, u.email AS owner_email
	FROM spaces s JOIN users u ON u.id = s.owner_id`

// Create inserts the space and enrolls the owner as an admin member.
func (r *SpaceRepository) Create(ctx context.Context, space *models.Space) (err error) {
	if space.ID == "" {
		space.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	space.CreatedAt = now
	space.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create space tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertSpace = `INSERT INTO spaces (id, name, description, key, owner_id, is_public, created_at, updated_at) VALUES (:id, :name, :description, :key, :owner_id, :is_public, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertSpace, space); err != nil {
		return fmt.Errorf("create space: %w", err)
	}

	const insertMember = `INSERT INTO space_members (space_id, user_id, role) VALUES ($1, $2, $3)`
	if _, err = tx.ExecContext(ctx, insertMember, space.ID, space.OwnerID, models.SpaceRoleAdmin); err != nil {
		return fmt.Errorf("enroll space owner: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create space tx: %w", err)
	}
	return nil
}

// FindByID returns a space with its owner reference and member list.
func (r *SpaceRepository) FindByID(ctx context.Context, id string) (*models.Space, error) {
	query := spaceSelect + ` WHERE s.id = $1 LIMIT 1`
	var row spaceRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find space by id: %w", err)
	}

	space := row.toSpace()
	members, err := r.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	space.Members = members
	return &space, nil
}

// FindByKey returns a space by its unique key.
func (r *SpaceRepository) FindByKey(ctx context.Context, key string) (*models.Space, error) {
	query := spaceSelect + ` WHERE s.key = $1 LIMIT 1`
	var row spaceRow
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find space by key: %w", err)
	}
	space := row.toSpace()
	return &space, nil
}

// Members returns the member list with user references.
func (r *SpaceRepository) Members(ctx context.Context, spaceID string) ([]models.SpaceMember, error) {
	const query = `SELECT m.space_id, m.user_id, m.role, u.id, u.name, u.email
		FROM space_members m JOIN users u ON u.id = m.user_id
		WHERE m.space_id = $1 ORDER BY u.name`

	rows, err := r.db.QueryxContext(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("list space members: %w", err)
	}
	defer rows.Close()

	var members []models.SpaceMember
	for rows.Next() {
		var m models.SpaceMember
		var ref models.UserRef
		if err := rows.Scan(&m.SpaceID, &m.UserID, &m.Role, &ref.ID, &ref.Name, &ref.Email); err != nil {
			return nil, fmt.Errorf("scan space member: %w", err)
		}
		m.User = &ref
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate space members: %w", err)
	}
	return members, nil
}

// ListForUser returns spaces the user owns, belongs to, or that are public,
// most recently updated first.
func (r *SpaceRepository) ListForUser(ctx context.Context, userID string) ([]models.Space, error) {
	query := spaceSelect + ` WHERE s.owner_id = $1 OR s.is_public = TRUE
		OR EXISTS (SELECT 1 FROM space_members m WHERE m.space_id = s.id AND m.user_id = $1)
		ORDER BY s.updated_at DESC`

	var rows []spaceRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}

	spaces := make([]models.Space, 0, len(rows))
	for _, row := range rows {
		spaces = append(spaces, row.toSpace())
	}
	return spaces, nil
}

// Update modifies the mutable space fields.
func (r *SpaceRepository) Update(ctx context.Context, space *models.Space) error {
	space.UpdatedAt = time.Now().UTC()
	const query = `UPDATE spaces SET name = :name, description = :description, is_public = :is_public, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, space); err != nil {
		return fmt.Errorf("update space: %w", err)
	}
	return nil
}

// DeleteCascade removes the space with its members, pages, page versions
// and comments in one transaction.
func (r *SpaceRepository) DeleteCascade(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete space tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM page_versions WHERE page_id IN (SELECT id FROM pages WHERE space_id = $1)`, id); err != nil {
		return fmt.Errorf("delete space page versions: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM comments WHERE page_id IN (SELECT id FROM pages WHERE space_id = $1)`, id); err != nil {
		return fmt.Errorf("delete space comments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE space_id = $1`, id); err != nil {
		return fmt.Errorf("delete space pages: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM space_members WHERE space_id = $1`, id); err != nil {
		return fmt.Errorf("delete space members: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM spaces WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete space: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete space tx: %w", err)
	}
	return nil
}

// Count returns the total number of spaces.
func (r *SpaceRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM spaces`); err != nil {
		return 0, fmt.Errorf("count spaces: %w", err)
	}
	return total, nil
}
