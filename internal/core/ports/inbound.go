package ports

import (
	"context"
	"io"

	"github.com/mkravets/docqa/internal/core/domain"
)

type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (domain.Answer, error)
	AnswerFromWeb(ctx context.Context, question string) (domain.Answer, error)
}

type DocumentIngestor interface {
	Ingest(ctx context.Context, filename, contentType string, size int64, r io.Reader) (domain.Document, error)
	Delete(ctx context.Context, id string) error
}

type HealthReporter interface {
	Health(ctx context.Context) domain.Health
}

type DocumentProcessor interface {
	Process(ctx context.Context, documentID string) error
}

type DocumentReader interface {
	GetByID(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context, limit int) ([]domain.Document, error)
}
