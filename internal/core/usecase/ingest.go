package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

const maxUploadBytes = 50 << 20

// IngestUseCase accepts an upload, persists it, and hands the heavy
// extraction work to the worker over the queue.
type IngestUseCase struct {
	log     *slog.Logger
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	vector  ports.VectorIndex
	keyword ports.KeywordIndex
}

var _ ports.DocumentIngestor = (*IngestUseCase)(nil)
var _ ports.DocumentReader = (*IngestUseCase)(nil)

func NewIngestUseCase(
	log *slog.Logger,
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	vector ports.VectorIndex,
	keyword ports.KeywordIndex,
) *IngestUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &IngestUseCase{log: log, repo: repo, storage: storage, queue: queue, vector: vector, keyword: keyword}
}

func (u *IngestUseCase) Ingest(ctx context.Context, filename, contentType string, size int64, r io.Reader) (domain.Document, error) {
	if filename == "" {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "ingest", fmt.Errorf("filename is required"))
	}
	if size <= 0 || size > maxUploadBytes {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "ingest", fmt.Errorf("size %d out of range", size))
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   size,
		Status:      domain.DocumentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.StoragePath = "documents/" + doc.ID

	if err := u.storage.Put(ctx, doc.StoragePath, io.LimitReader(r, maxUploadBytes)); err != nil {
		return domain.Document{}, err
	}
	if err := u.repo.Save(ctx, doc); err != nil {
		_ = u.storage.Delete(ctx, doc.StoragePath)
		return domain.Document{}, err
	}
	if err := u.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		// The row stays pending; a later re-publish or poller can pick
		// it up, so the upload itself still succeeds.
		u.log.Error("publish_failed", "document_id", doc.ID, "error", err.Error())
	}

	u.log.Info("document_ingested",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"size_bytes", doc.SizeBytes,
	)
	return doc, nil
}

// Delete removes the document everywhere: both indexes, the stored
// file, and finally the metadata row.
func (u *IngestUseCase) Delete(ctx context.Context, id string) error {
	doc, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.vector.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := u.keyword.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	if err := u.storage.Delete(ctx, doc.StoragePath); err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, doc.ID); err != nil {
		return err
	}
	u.log.Info("document_deleted", "document_id", doc.ID)
	return nil
}

func (u *IngestUseCase) GetByID(ctx context.Context, id string) (domain.Document, error) {
	if id == "" {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "get document", fmt.Errorf("id is required"))
	}
	return u.repo.GetByID(ctx, id)
}

func (u *IngestUseCase) List(ctx context.Context, limit int) ([]domain.Document, error) {
	return u.repo.List(ctx, limit)
}
