package ports

import (
	"context"
	"io"
	"time"

	"github.com/mkravets/docqa/internal/core/domain"
)

type DocumentRepository interface {
	Save(ctx context.Context, doc domain.Document) error
	GetByID(ctx context.Context, id string) (domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]domain.Document, error)
}

type ObjectStorage interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(ctx context.Context, documentID string) error) error
	Close() error
}

type TextExtractor interface {
	Extract(ctx context.Context, contentType string, r io.Reader) (string, error)
}

type Chunker interface {
	Split(text string) []string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	IndexChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topN int) ([]domain.RetrievalCandidate, error)
	Count(ctx context.Context) (int, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type KeywordIndex interface {
	IndexChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error
	Search(ctx context.Context, query string, topN int) ([]domain.RetrievalCandidate, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, passages []domain.FusedResult) (string, error)
	GenerateGreeting(ctx context.Context, message string) (string, error)
	GenerateSummary(ctx context.Context, question string, snippets []domain.Snippet) (string, error)
	Healthy(ctx context.Context) error
}

type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Snippet, error)
}

// CacheStore is a namespaced byte cache. A zero ttl on Set selects the
// namespace default configured on the store.
type CacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Stats(namespace string) domain.CacheStats
}
