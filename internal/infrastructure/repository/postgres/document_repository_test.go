package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mkravets/docqa/internal/core/domain"
)

var docColumns = []string{
	"id", "filename", "content_type", "size_bytes", "storage_path",
	"status", "chunk_count", "error", "created_at", "updated_at",
}

func TestGetByID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(docColumns).AddRow(
			"doc-1", "handbook.pdf", "application/pdf", int64(1024), "documents/doc-1",
			"ready", 12, "", now, now,
		))

	repo := NewDocumentRepository(db)
	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Filename != "handbook.pdf" || doc.Status != domain.DocumentStatusReady || doc.ChunkCount != 12 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(docColumns))

	repo := NewDocumentRepository(db)
	_, err = repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found kind, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE documents SET status = \$2`).
		WithArgs("doc-1", "ready", 8, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocumentRepository(db)
	if err := repo.UpdateStatus(context.Background(), "doc-1", domain.DocumentStatusReady, 8, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE documents SET status = \$2`).
		WithArgs("missing", "failed", 0, "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDocumentRepository(db)
	err = repo.UpdateStatus(context.Background(), "missing", domain.DocumentStatusFailed, 0, "boom")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found kind, got %v", err)
	}
}

func TestSaveUpsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	doc := domain.Document{
		ID: "doc-1", Filename: "a.pdf", ContentType: "application/pdf",
		SizeBytes: 10, StoragePath: "documents/doc-1", Status: domain.DocumentStatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(doc.ID, doc.Filename, doc.ContentType, doc.SizeBytes, doc.StoragePath,
			string(doc.Status), doc.ChunkCount, doc.Error, doc.CreatedAt, doc.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocumentRepository(db)
	if err := repo.Save(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
