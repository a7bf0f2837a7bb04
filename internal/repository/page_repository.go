package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/teamhub/kb-api/internal/models"
)

// PageRepository provides database access for pages and their version ledger.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new instance of PageRepository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

type pageRow struct {
	models.Page
	AuthorName    string         `db:"author_name"`
	AuthorEmail   string         `db:"author_email"`
	ModifierName  sql.NullString `db:"modifier_name"`
	ModifierEmail sql.NullString `db:"modifier_email"`
	SpaceName     string         `db:"space_name"`
	SpaceKey      string         `db:"space_key"`
}

func (row pageRow) toPage() models.Page {
	page := row.Page
	page.Author = &models.UserRef{ID: page.AuthorID, Name: row.AuthorName, Email: row.AuthorEmail}
	page.Space = &models.SpaceRef{ID: page.SpaceID, Name: row.SpaceName, Key: row.SpaceKey}
	if page.LastModifiedBy != nil && row.ModifierName.Valid {
		page.LastModifier = &models.UserRef{ID: *page.LastModifiedBy, Name: row.ModifierName.String, Email: row.ModifierEmail.String}
	}
	return page
}

const pageSelect = `SELECT p.id, p.title, p.content, p.slug, p.space_id, p.author_id, p.parent_id, p.tags,
	p.status, p.view_count, p.last_modified_by, p.created_at, p.updated_at,
	a.name AS author_name, a.email AS author_email,
	m.name AS modifier_name, m.email AS modifier_email,
	s.name AS space_name, s.key AS space_key
	FROM pages p
	JOIN users a ON a.id = p.author_id
	LEFT JOIN users m ON m.id = p.last_modified_by
	JOIN spaces s ON s.id = p.space_id`

// Create inserts a new page.
func (r *PageRepository) Create(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	page.CreatedAt = now
	page.UpdatedAt = now

	const query = `INSERT INTO pages (id, title, content, slug, space_id, author_id, parent_id, tags, status, view_count, last_modified_by, created_at, updated_at)
		VALUES (:id, :title, :content, :slug, :space_id, :author_id, :parent_id, :tags, :status, :view_count, :last_modified_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

// FindByID returns a page with author, last-modifier and space references.
func (r *PageRepository) FindByID(ctx context.Context, id string) (*models.Page, error) {
	query := pageSelect + ` WHERE p.id = $1 LIMIT 1`
	var row pageRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find page by id: %w", err)
	}
	page := row.toPage()
	return &page, nil
}

// List returns pages matching the filter, most recently updated first.
func (r *PageRepository) List(ctx context.Context, filter models.PageFilter) ([]models.Page, error) {
	query := pageSelect + ` WHERE 1=1`
	var args []interface{}

	if filter.SpaceID != "" {
		args = append(args, filter.SpaceID)
		query += fmt.Sprintf(" AND p.space_id = $%d", len(args))
	}
	if filter.RootOnly {
		query += " AND p.parent_id IS NULL"
	} else if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		query += fmt.Sprintf(" AND p.parent_id = $%d", len(args))
	}
	query += " ORDER BY p.updated_at DESC"

	var rows []pageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	pages := make([]models.Page, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, row.toPage())
	}
	return pages, nil
}

// Update persists the mutable page fields.
func (r *PageRepository) Update(ctx context.Context, page *models.Page) error {
	page.UpdatedAt = time.Now().UTC()
	const query = `UPDATE pages SET title = :title, content = :content, slug = :slug, parent_id = :parent_id, tags = :tags, status = :status, last_modified_by = :last_modified_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, page); err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

// IncrementViewCount bumps the view counter atomically at the storage layer.
func (r *PageRepository) IncrementViewCount(ctx context.Context, id string) error {
	const query = `UPDATE pages SET view_count = view_count + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// RecordVersion appends a ledger entry for the page. The version number is
// assigned as max+1 inside a single statement; the last concurrent writer
// still wins the live row (see DESIGN.md).
func (r *PageRepository) RecordVersion(ctx context.Context, version *models.PageVersion) (int, error) {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO page_versions (id, page_id, title, content, version, author_id, change_note, created_at)
		SELECT $1, $2, $3, $4, COALESCE(MAX(version), 0) + 1, $5, $6, $7 FROM page_versions WHERE page_id = $2
		RETURNING version`
	var assigned int
	if err := r.db.GetContext(ctx, &assigned, query,
		version.ID, version.PageID, version.Title, version.Content, version.AuthorID, version.ChangeNote, version.CreatedAt); err != nil {
		return 0, fmt.Errorf("record page version: %w", err)
	}
	version.Version = assigned
	return assigned, nil
}

// Versions returns the ledger for a page, newest version first.
func (r *PageRepository) Versions(ctx context.Context, pageID string) ([]models.PageVersion, error) {
	const query = `SELECT v.id, v.page_id, v.title, v.content, v.version, v.author_id, v.change_note, v.created_at,
		u.name AS author_name, u.email AS author_email
		FROM page_versions v JOIN users u ON u.id = v.author_id
		WHERE v.page_id = $1 ORDER BY v.version DESC`

	rows, err := r.db.QueryxContext(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list page versions: %w", err)
	}
	defer rows.Close()

	var versions []models.PageVersion
	for rows.Next() {
		var v models.PageVersion
		var ref models.UserRef
		if err := rows.Scan(&v.ID, &v.PageID, &v.Title, &v.Content, &v.Version, &v.AuthorID, &v.ChangeNote, &v.CreatedAt, &ref.Name, &ref.Email); err != nil {
			return nil, fmt.Errorf("scan page version: %w", err)
		}
		ref.ID = v.AuthorID
		v.Author = &ref
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page versions: %w", err)
	}
	return versions, nil
}

// Search runs a full-text query over title, content and tags, ranked by
// relevance, optionally scoped to one space.
func (r *PageRepository) Search(ctx context.Context, q, spaceID string) ([]models.Page, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}

	const fts = `to_tsvector('english', p.title || ' ' || p.content || ' ' || array_to_string(p.tags, ' '))`
	query := `SELECT p.id, p.title, p.content, p.slug, p.space_id, p.author_id, p.parent_id, p.tags,
		p.status, p.view_count, p.last_modified_by, p.created_at, p.updated_at,
		a.name AS author_name, a.email AS author_email,
		m.name AS modifier_name, m.email AS modifier_email,
		s.name AS space_name, s.key AS space_key,
		ts_rank(` + fts + `, plainto_tsquery('english', $1)) AS rank
		FROM pages p
		JOIN users a ON a.id = p.author_id
		LEFT JOIN users m ON m.id = p.last_modified_by
		JOIN spaces s ON s.id = p.space_id
		WHERE ` + fts + ` @@ plainto_tsquery('english', $1)`
	args := []interface{}{q}
	if spaceID != "" {
		args = append(args, spaceID)
		query += fmt.Sprintf(" AND p.space_id = $%d", len(args))
	}
	query += ` ORDER BY rank DESC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var row pageRow
		var rank float64
		if err := rows.Scan(&row.ID, &row.Title, &row.Content, &row.Slug, &row.SpaceID, &row.AuthorID, &row.ParentID, &row.Tags,
			&row.Status, &row.ViewCount, &row.LastModifiedBy, &row.CreatedAt, &row.UpdatedAt,
			&row.AuthorName, &row.AuthorEmail, &row.ModifierName, &row.ModifierEmail,
			&row.SpaceName, &row.SpaceKey, &rank); err != nil {
			return nil, fmt.Errorf("scan page search row: %w", err)
		}
		pages = append(pages, row.toPage())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page search rows: %w", err)
	}
	return pages, nil
}

type suggestionRow struct {
	Title string         `db:"title"`
	Tags  pq.StringArray `db:"tags"`
}

// Suggestions returns up to five distinct title and tag completions for the
// given prefix query.
func (r *PageRepository) Suggestions(ctx context.Context, q string) ([]string, error) {
	const query = `SELECT title, tags FROM pages
		WHERE title ILIKE '%' || $1 || '%' OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE '%' || $1 || '%')
		LIMIT 5`

	var rows []suggestionRow
	if err := r.db.SelectContext(ctx, &rows, query, q); err != nil {
		return nil, fmt.Errorf("page suggestions: %w", err)
	}

	lowered := strings.ToLower(q)
	seen := make(map[string]struct{})
	suggestions := make([]string, 0, 5)

	add := func(s string) {
		if len(suggestions) >= 5 {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		suggestions = append(suggestions, s)
	}

	for _, row := range rows {
		add(row.Title)
	}
	tagBudget := 3
	for _, row := range rows {
		for _, tag := range row.Tags {
			if tagBudget == 0 {
				break
			}
			if strings.Contains(strings.ToLower(tag), lowered) {
				add(tag)
				tagBudget--
			}
		}
	}

	return suggestions, nil
}

// DeleteCascade removes the page, its direct children, and every affected
// page's versions and comments in one transaction.
func (r *PageRepository) DeleteCascade(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete page tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM page_versions WHERE page_id = $1 OR page_id IN (SELECT id FROM pages WHERE parent_id = $1)`, id); err != nil {
		return fmt.Errorf("delete page versions: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM comments WHERE page_id = $1 OR page_id IN (SELECT id FROM pages WHERE parent_id = $1)`, id); err != nil {
		return fmt.Errorf("delete page comments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE parent_id = $1`, id); err != nil {
		return fmt.Errorf("delete child pages: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete page tx: %w", err)
	}
	return nil
}

// Count returns the total number of pages.
func (r *PageRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM pages`); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return total, nil
}
