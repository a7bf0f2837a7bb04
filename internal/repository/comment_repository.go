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

// CommentRepository provides database access for page comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new instance of CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

type commentRow struct {
	models.Comment
	AuthorName  string `db:"author_name"`
	AuthorEmail string `db:"author_email"`
}

func (row commentRow) toComment() models.Comment {
	c := row.Comment
	c.Author = &models.UserRef{ID: c.AuthorID, Name: row.AuthorName, Email: row.AuthorEmail}
	return c
}

const commentSelect = `SELECT c.id, c.page_id, c.author_id, c.content, c.parent_id, c.is_edited, c.created_at, c.updated_at,
	u.name AS author_name, u.email AS author_email
	FROM comments c
	JOIN users u ON u.id = c.author_id`

// Create inserts a new comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	const query = `INSERT INTO comments (id, page_id, author_id, content, parent_id, is_edited, created_at, updated_at)
		VALUES (:id, :page_id, :author_id, :content, :parent_id, :is_edited, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindByID returns a comment with its author reference.
func (r *CommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	query := commentSelect + ` WHERE c.id = $1 LIMIT 1`
	var row commentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	comment := row.toComment()
	return &comment, nil
}

// ListByPage returns the comments of a page, oldest first.
func (r *CommentRepository) ListByPage(ctx context.Context, pageID string) ([]models.Comment, error) {
	query := commentSelect + ` WHERE c.page_id = $1 ORDER BY c.created_at ASC`
	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, pageID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	comments := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toComment())
	}
	return comments, nil
}

// Update persists edited content and flags the comment as edited.
func (r *CommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	comment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE comments SET content = :content, is_edited = :is_edited, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, comment)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
