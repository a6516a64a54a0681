package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id           TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    content_type TEXT NOT NULL,
    size_bytes   BIGINT NOT NULL,
    storage_path TEXT NOT NULL,
    status       TEXT NOT NULL,
    chunk_count  INT NOT NULL DEFAULT 0,
    error        TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (status);
`

type DocumentRepository struct {
	db *sql.DB
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// EnsureSchema creates the documents table. The advisory lock keeps
// concurrent replicas from racing on DDL at startup.
func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrUnavailable, "ensure schema", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(874223011)`); err != nil {
		return domain.WrapError(domain.ErrUnavailable, "ensure schema", err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return domain.WrapError(domain.ErrUnavailable, "ensure schema", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrUnavailable, "ensure schema", err)
	}
	return nil
}

func (r *DocumentRepository) Save(ctx context.Context, doc domain.Document) error {
	const q = `
INSERT INTO documents (id, filename, content_type, size_bytes, storage_path, status, chunk_count, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    filename = EXCLUDED.filename,
    content_type = EXCLUDED.content_type,
    size_bytes = EXCLUDED.size_bytes,
    storage_path = EXCLUDED.storage_path,
    status = EXCLUDED.status,
    chunk_count = EXCLUDED.chunk_count,
    error = EXCLUDED.error,
    updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q,
		doc.ID, doc.Filename, doc.ContentType, doc.SizeBytes, doc.StoragePath,
		doc.Status, doc.ChunkCount, doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "save document", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (domain.Document, error) {
	const q = `
SELECT id, filename, content_type, size_bytes, storage_path, status, chunk_count, error, created_at, updated_at
FROM documents WHERE id = $1`
	var doc domain.Document
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.StoragePath,
		&doc.Status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.WrapError(domain.ErrDocumentNotFound, "get document", err)
	}
	if err != nil {
		return domain.Document{}, domain.WrapError(domain.ErrTemporary, "get document", err)
	}
	return doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error {
	const q = `
UPDATE documents SET status = $2, chunk_count = $3, error = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status, chunkCount, errMsg, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "update document status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "update document status", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", nil)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete document", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", nil)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, filename, content_type, size_bytes, storage_path, status, chunk_count, error, created_at, updated_at
FROM documents ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list documents", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var doc domain.Document
		err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.StoragePath,
			&doc.Status, &doc.ChunkCount, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
		)
		if err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "scan document", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list documents", err)
	}
	return out, nil
}
