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

// TemplateRepository provides database access for page templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new instance of TemplateRepository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

type templateRow struct {
	models.Template
	AuthorName  string `db:"author_name"`
	AuthorEmail string `db:"author_email"`
}

func (row templateRow) toTemplate() models.Template {
	t := row.Template
	t.Author = &models.UserRef{ID: t.AuthorID, Name: row.AuthorName, Email: row.AuthorEmail}
	return t
}

const templateSelect = `SELECT t.id, t.name, t.description, t.content, t.category, t.author_id, t.is_public, t.usage_count, t.tags, t.created_at, t.updated_at,
	u.name AS author_name, u.email AS author_email
	FROM templates t
	JOIN users u ON u.id = t.author_id`

// Create inserts a new template.
func (r *TemplateRepository) Create(ctx context.Context, template *models.Template) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	const query = `INSERT INTO templates (id, name, description, content, category, author_id, is_public, usage_count, tags, created_at, updated_at)
		VALUES (:id, :name, :description, :content, :category, :author_id, :is_public, :usage_count, :tags, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// FindByID returns a template with its author reference.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.Template, error) {
	query := templateSelect + ` WHERE t.id = $1 LIMIT 1`
	var row templateRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	template := row.toTemplate()
	return &template, nil
}

// ListForUser returns templates that are public or authored by the user.
// An optional category narrows the result.
func (r *TemplateRepository) ListForUser(ctx context.Context, userID string, category models.TemplateCategory) ([]models.Template, error) {
	query := templateSelect + ` WHERE (t.is_public = TRUE OR t.author_id = $1)`
	args := []interface{}{userID}
	if category != "" {
		query += ` AND t.category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY t.usage_count DESC, t.created_at DESC`

	var rows []templateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templates := make([]models.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, row.toTemplate())
	}
	return templates, nil
}

// Update persists the mutable template attributes.
func (r *TemplateRepository) Update(ctx context.Context, template *models.Template) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE templates SET name = :name, description = :description, content = :content, category = :category, is_public = :is_public, tags = :tags, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, template)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementUsage atomically bumps the usage counter.
func (r *TemplateRepository) IncrementUsage(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
