package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teamhub/kb-api/internal/models"
)

// DocumentRepository provides database access for documents, their embedded
// version history, share grants and mention records.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

type documentRow struct {
	models.Document
	AuthorName    string         `db:"author_name"`
	AuthorEmail   string         `db:"author_email"`
	ModifierName  sql.NullString `db:"modifier_name"`
	ModifierEmail sql.NullString `db:"modifier_email"`
}

func (row documentRow) toDocument() models.Document {
	doc := row.Document
	doc.Author = &models.UserRef{ID: doc.AuthorID, Name: row.AuthorName, Email: row.AuthorEmail}
	if doc.LastModifiedBy != nil && row.ModifierName.Valid {
		doc.LastModifier = &models.UserRef{ID: *doc.LastModifiedBy, Name: row.ModifierName.String, Email: row.ModifierEmail.String}
	}
	if doc.SharedWith == nil {
		doc.SharedWith = []models.DocumentShare{}
	}
	return doc
}

const documentSelect = `SELECT d.id, d.title, d.content, d.author_id, d.is_public, d.current_version, d.last_modified_by, d.created_at, d.updated_at,
	a.name AS author_name, a.email AS author_email,
	m.name AS modifier_name, m.email AS modifier_email
	FROM documents d
	JOIN users a ON a.id = d.author_id
	LEFT JOIN users m ON m.id = d.last_modified_by`

// Create inserts the document with its initial version, share grants and
// mention records in one transaction.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document, mentionIDs []string) (err error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.CurrentVersion == 0 {
		doc.CurrentVersion = 1
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create document tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertDoc = `INSERT INTO documents (id, title, content, author_id, is_public, current_version, last_modified_by, created_at, updated_at)
		VALUES (:id, :title, :content, :author_id, :is_public, :current_version, :last_modified_by, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertDoc, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	const insertVersion = `INSERT INTO document_versions (id, document_id, content, author_id, changes, version_number, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insertVersion, uuid.NewString(), doc.ID, doc.Content, doc.AuthorID, "Initial version", 1, now); err != nil {
		return fmt.Errorf("create document initial version: %w", err)
	}

	const insertShare = `INSERT INTO document_shares (document_id, user_id, permission) VALUES ($1, $2, $3)`
	for _, share := range doc.SharedWith {
		if _, err = tx.ExecContext(ctx, insertShare, doc.ID, share.UserID, share.Permission); err != nil {
			return fmt.Errorf("create document share: %w", err)
		}
	}

	const insertMention = `INSERT INTO document_mentions (document_id, user_id) VALUES ($1, $2)`
	for _, userID := range mentionIDs {
		if _, err = tx.ExecContext(ctx, insertMention, doc.ID, userID); err != nil {
			return fmt.Errorf("create document mention: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create document tx: %w", err)
	}
	return nil
}

// FindByID returns a document with shares, versions and mentions expanded.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := documentSelect + ` WHERE d.id = $1 LIMIT 1`
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}

	doc := row.toDocument()

	shares, err := r.shares(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.SharedWith = shares

	versions, err := r.versions(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Versions = versions

	mentions, err := r.mentionIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Mentions = mentions

	return &doc, nil
}

func (r *DocumentRepository) shares(ctx context.Context, docID string) ([]models.DocumentShare, error) {
	const query = `SELECT s.document_id, s.user_id, s.permission, u.name, u.email
		FROM document_shares s JOIN users u ON u.id = s.user_id
		WHERE s.document_id = $1 ORDER BY u.name`

	rows, err := r.db.QueryxContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("list document shares: %w", err)
	}
	defer rows.Close()

	shares := []models.DocumentShare{}
	for rows.Next() {
		var s models.DocumentShare
		var ref models.UserRef
		if err := rows.Scan(&s.DocumentID, &s.UserID, &s.Permission, &ref.Name, &ref.Email); err != nil {
			return nil, fmt.Errorf("scan document share: %w", err)
		}
		ref.ID = s.UserID
		s.User = &ref
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document shares: %w", err)
	}
	return shares, nil
}

func (r *DocumentRepository) versions(ctx context.Context, docID string) ([]models.DocumentVersion, error) {
	const query = `SELECT v.id, v.document_id, v.content, v.author_id, v.changes, v.version_number, v.created_at, u.name
		FROM document_versions v JOIN users u ON u.id = v.author_id
		WHERE v.document_id = $1 ORDER BY v.version_number`

	rows, err := r.db.QueryxContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		var name string
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Content, &v.AuthorID, &v.Changes, &v.VersionNumber, &v.CreatedAt, &name); err != nil {
			return nil, fmt.Errorf("scan document version: %w", err)
		}
		v.Author = &models.UserRef{ID: v.AuthorID, Name: name}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document versions: %w", err)
	}
	return versions, nil
}

func (r *DocumentRepository) mentionIDs(ctx context.Context, docID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM document_mentions WHERE document_id = $1`, docID); err != nil {
		return nil, fmt.Errorf("list document mentions: %w", err)
	}
	return ids, nil
}

// ListForUser returns documents the user authored, was granted access to,
// or that are public, most recently updated first. Shares are expanded so
// the caller can render grant lists without extra round trips.
func (r *DocumentRepository) ListForUser(ctx context.Context, userID string) ([]models.Document, error) {
	query := documentSelect + ` WHERE d.author_id = $1 OR d.is_public = TRUE
		OR EXISTS (SELECT 1 FROM document_shares s WHERE s.document_id = d.id AND s.user_id = $1)
		ORDER BY d.updated_at DESC`

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		doc := row.toDocument()
		shares, err := r.shares(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.SharedWith = shares
		docs = append(docs, doc)
	}
	return docs, nil
}

// ApplyUpdate persists an edit: appends the superseded content as a version
// entry, updates the live row, replaces the mention set and adds the new
// auto-share grants, all in one transaction. Existing grants are never
// touched.
func (r *DocumentRepository) ApplyUpdate(ctx context.Context, doc *models.Document, version *models.DocumentVersion, mentionIDs []string, newShares []models.DocumentShare) (err error) {
	doc.UpdatedAt = time.Now().UTC()
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = doc.UpdatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update document tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertVersion = `INSERT INTO document_versions (id, document_id, content, author_id, changes, version_number, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insertVersion, version.ID, version.DocumentID, version.Content, version.AuthorID, version.Changes, version.VersionNumber, version.CreatedAt); err != nil {
		return fmt.Errorf("append document version: %w", err)
	}

	const updateDoc = `UPDATE documents SET title = :title, content = :content, is_public = :is_public, current_version = :current_version, last_modified_by = :last_modified_by, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateDoc, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM document_mentions WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear document mentions: %w", err)
	}
	const insertMention = `INSERT INTO document_mentions (document_id, user_id) VALUES ($1, $2)`
	for _, userID := range mentionIDs {
		if _, err = tx.ExecContext(ctx, insertMention, doc.ID, userID); err != nil {
			return fmt.Errorf("insert document mention: %w", err)
		}
	}

	const insertShare = `INSERT INTO document_shares (document_id, user_id, permission) VALUES ($1, $2, $3)`
	for _, share := range newShares {
		if _, err = tx.ExecContext(ctx, insertShare, doc.ID, share.UserID, share.Permission); err != nil {
			return fmt.Errorf("insert document share: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update document tx: %w", err)
	}
	return nil
}

// ReplaceShare removes any existing grant for the user and stores the new
// one. Used by explicit share management, which may upgrade or downgrade.
func (r *DocumentRepository) ReplaceShare(ctx context.Context, docID, userID string, permission models.SharePermission) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace share tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM document_shares WHERE document_id = $1 AND user_id = $2`, docID, userID); err != nil {
		return fmt.Errorf("remove existing share: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO document_shares (document_id, user_id, permission) VALUES ($1, $2, $3)`, docID, userID, permission); err != nil {
		return fmt.Errorf("insert share: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace share tx: %w", err)
	}
	return nil
}

// Search runs a ranked full-text query over documents visible to the user.
func (r *DocumentRepository) Search(ctx context.Context, userID, q string) ([]models.Document, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}

	const fts = `to_tsvector('english', d.title || ' ' || d.content)`
	query := `SELECT d.id, d.title, d.content, d.author_id, d.is_public, d.current_version, d.last_modified_by, d.created_at, d.updated_at,
		a.name AS author_name, a.email AS author_email,
		m.name AS modifier_name, m.email AS modifier_email,
		ts_rank(` + fts + `, plainto_tsquery('english', $2)) AS rank
		FROM documents d
		JOIN users a ON a.id = d.author_id
		LEFT JOIN users m ON m.id = d.last_modified_by
		WHERE (d.author_id = $1 OR d.is_public = TRUE
			OR EXISTS (SELECT 1 FROM document_shares s WHERE s.document_id = d.id AND s.user_id = $1))
		AND ` + fts + ` @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC`

	rows, err := r.db.QueryxContext(ctx, query, userID, q)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var row documentRow
		var rank float64
		if err := rows.Scan(&row.ID, &row.Title, &row.Content, &row.AuthorID, &row.IsPublic, &row.CurrentVersion, &row.LastModifiedBy, &row.CreatedAt, &row.UpdatedAt,
			&row.AuthorName, &row.AuthorEmail, &row.ModifierName, &row.ModifierEmail, &rank); err != nil {
			return nil, fmt.Errorf("scan document search row: %w", err)
		}
		docs = append(docs, row.toDocument())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document search rows: %w", err)
	}
	return docs, nil
}
