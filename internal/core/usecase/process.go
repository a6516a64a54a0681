package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

// ProcessUseCase runs in the worker: it extracts text from a stored
// document, chunks it, and indexes every chunk into both the keyword
// and the vector index. Failures are written back to the document row
// so the API can report them.
type ProcessUseCase struct {
	log       *slog.Logger
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vector    ports.VectorIndex
	keyword   ports.KeywordIndex
}

var _ ports.DocumentProcessor = (*ProcessUseCase)(nil)

func NewProcessUseCase(
	log *slog.Logger,
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vector ports.VectorIndex,
	keyword ports.KeywordIndex,
) *ProcessUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessUseCase{
		log:       log,
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vector:    vector,
		keyword:   keyword,
	}
}

func (u *ProcessUseCase) Process(ctx context.Context, documentID string) error {
	doc, err := u.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := u.repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""); err != nil {
		return err
	}

	chunkCount, err := u.index(ctx, doc)
	if err != nil {
		u.log.Error("document_processing_failed", "document_id", doc.ID, "error", err.Error())
		if updErr := u.repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0, err.Error()); updErr != nil {
			u.log.Error("status_update_failed", "document_id", doc.ID, "error", updErr.Error())
		}
		return err
	}

	if err := u.repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusReady, chunkCount, ""); err != nil {
		return err
	}
	u.log.Info("document_processed", "document_id", doc.ID, "chunks", chunkCount)
	return nil
}

func (u *ProcessUseCase) index(ctx context.Context, doc domain.Document) (int, error) {
	rc, err := u.storage.Get(ctx, doc.StoragePath)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	text, err := u.extractor.Extract(ctx, doc.ContentType, rc)
	if err != nil {
		return 0, err
	}
	parts := u.chunker.Split(text)
	if len(parts) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "process document", fmt.Errorf("no indexable text"))
	}

	chunks := make([]domain.Chunk, len(parts))
	vectors := make([][]float32, len(parts))
	for n, part := range parts {
		chunks[n] = domain.Chunk{DocumentID: doc.ID, Index: n, Text: part}
		vec, err := u.embedder.Embed(ctx, part)
		if err != nil {
			return 0, err
		}
		vectors[n] = vec
	}

	if err := u.keyword.IndexChunks(ctx, doc, chunks); err != nil {
		return 0, err
	}
	if err := u.vector.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
