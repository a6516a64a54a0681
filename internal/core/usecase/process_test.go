package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mkravets/docqa/internal/core/domain"
)

type fakeRepo struct {
	docs     map[string]domain.Document
	statuses []domain.DocumentStatus
	saveErr  error
}

func newFakeRepo(docs ...domain.Document) *fakeRepo {
	r := &fakeRepo{docs: make(map[string]domain.Document)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeRepo) Save(ctx context.Context, doc domain.Document) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (domain.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return domain.Document{}, domain.WrapError(domain.ErrDocumentNotFound, "get document", nil)
	}
	return doc, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error {
	doc, ok := r.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", nil)
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.Error = errMsg
	r.docs[id] = doc
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", nil)
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, limit int) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	return out, nil
}

type fakeStorage struct {
	objects map[string]string
	putErr  error
	deleted []string
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: make(map[string]string)} }

func (s *fakeStorage) Put(ctx context.Context, path string, r io.Reader) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, _ := io.ReadAll(r)
	s.objects[path] = string(data)
	return nil
}

func (s *fakeStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.objects[path]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "read object", nil)
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	delete(s.objects, path)
	return nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (q *fakeQueue) PublishDocumentUploaded(ctx context.Context, documentID string) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentUploaded(ctx context.Context, handler func(ctx context.Context, documentID string) error) error {
	return nil
}

func (q *fakeQueue) Close() error { return nil }

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(ctx context.Context, contentType string, r io.Reader) (string, error) {
	return e.text, e.err
}

type fixedChunker struct{ chunks []string }

func (c *fixedChunker) Split(text string) []string { return c.chunks }

type recordingVectorIndex struct {
	fakeVectorIndex
	indexed int
	deleted []string
}

func (f *recordingVectorIndex) IndexChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	f.indexed = len(chunks)
	return nil
}

func (f *recordingVectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type recordingKeywordIndex struct {
	fakeKeywordIndex
	indexed int
	deleted []string
}

func (f *recordingKeywordIndex) IndexChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	f.indexed = len(chunks)
	return nil
}

func (f *recordingKeywordIndex) DeleteDocument(ctx context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestStoresAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	storage := newFakeStorage()
	queue := &fakeQueue{}
	uc := NewIngestUseCase(discardLogger(), repo, storage, queue, &recordingVectorIndex{}, &recordingKeywordIndex{})

	doc, err := uc.Ingest(context.Background(), "handbook.pdf", "application/pdf", 9, strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.Status != domain.DocumentStatusPending {
		t.Fatalf("status = %s", doc.Status)
	}
	if _, ok := storage.objects[doc.StoragePath]; !ok {
		t.Fatal("file not stored")
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("event not published: %v", queue.published)
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	uc := NewIngestUseCase(discardLogger(), newFakeRepo(), newFakeStorage(), &fakeQueue{}, &recordingVectorIndex{}, &recordingKeywordIndex{})
	if _, err := uc.Ingest(context.Background(), "", "text/plain", 5, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("missing filename: got %v", err)
	}
	if _, err := uc.Ingest(context.Background(), "a.txt", "text/plain", 0, strings.NewReader("")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("zero size: got %v", err)
	}
}

func TestIngestCleansUpOnSaveFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("db down")
	storage := newFakeStorage()
	uc := NewIngestUseCase(discardLogger(), repo, storage, &fakeQueue{}, &recordingVectorIndex{}, &recordingKeywordIndex{})

	_, err := uc.Ingest(context.Background(), "a.txt", "text/plain", 5, strings.NewReader("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(storage.deleted) != 1 {
		t.Fatal("stored file must be removed when the row cannot be saved")
	}
}

func TestIngestSurvivesPublishFailure(t *testing.T) {
	uc := NewIngestUseCase(discardLogger(), newFakeRepo(), newFakeStorage(), &fakeQueue{err: errors.New("nats down")}, &recordingVectorIndex{}, &recordingKeywordIndex{})
	doc, err := uc.Ingest(context.Background(), "a.txt", "text/plain", 5, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("upload must succeed despite publish failure, got %v", err)
	}
	if doc.ID == "" {
		t.Fatal("missing document id")
	}
}

func TestDeleteRemovesDocumentEverywhere(t *testing.T) {
	doc := domain.Document{ID: "doc-1", Filename: "a.txt", StoragePath: "documents/doc-1", Status: domain.DocumentStatusReady}
	repo := newFakeRepo(doc)
	storage := newFakeStorage()
	storage.objects[doc.StoragePath] = "texto"
	vector := &recordingVectorIndex{}
	keyword := &recordingKeywordIndex{}
	uc := NewIngestUseCase(discardLogger(), repo, storage, &fakeQueue{}, vector, keyword)

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(vector.deleted) != 1 || vector.deleted[0] != "doc-1" {
		t.Fatalf("vector index not cleaned: %v", vector.deleted)
	}
	if len(keyword.deleted) != 1 || keyword.deleted[0] != "doc-1" {
		t.Fatalf("keyword index not cleaned: %v", keyword.deleted)
	}
	if len(storage.deleted) != 1 || storage.deleted[0] != doc.StoragePath {
		t.Fatalf("stored file not removed: %v", storage.deleted)
	}
	if _, err := uc.GetByID(context.Background(), "doc-1"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("row must be gone, got %v", err)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	uc := NewIngestUseCase(discardLogger(), newFakeRepo(), newFakeStorage(), &fakeQueue{}, &recordingVectorIndex{}, &recordingKeywordIndex{})
	if err := uc.Delete(context.Background(), "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestProcessIndexesIntoBothIndexes(t *testing.T) {
	doc := domain.Document{ID: "doc-1", Filename: "a.txt", ContentType: "text/plain", StoragePath: "documents/doc-1", Status: domain.DocumentStatusPending}
	repo := newFakeRepo(doc)
	storage := newFakeStorage()
	storage.objects[doc.StoragePath] = "texto completo"
	vector := &recordingVectorIndex{}
	keyword := &recordingKeywordIndex{}

	uc := NewProcessUseCase(discardLogger(), repo, storage,
		&fakeExtractor{text: "texto completo"},
		&fixedChunker{chunks: []string{"texto", "completo"}},
		&fakeEmbedder{}, vector, keyword)

	if err := uc.Process(context.Background(), "doc-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if vector.indexed != 2 || keyword.indexed != 2 {
		t.Fatalf("chunks indexed: vector=%d keyword=%d", vector.indexed, keyword.indexed)
	}
	final := repo.docs["doc-1"]
	if final.Status != domain.DocumentStatusReady || final.ChunkCount != 2 {
		t.Fatalf("final state %+v", final)
	}
}

func TestProcessMarksFailureOnExtractError(t *testing.T) {
	doc := domain.Document{ID: "doc-1", ContentType: "application/pdf", StoragePath: "documents/doc-1"}
	repo := newFakeRepo(doc)
	storage := newFakeStorage()
	storage.objects[doc.StoragePath] = "broken"

	uc := NewProcessUseCase(discardLogger(), repo, storage,
		&fakeExtractor{err: domain.WrapError(domain.ErrInvalidInput, "parse pdf", errors.New("corrupt"))},
		&fixedChunker{}, &fakeEmbedder{}, &recordingVectorIndex{}, &recordingKeywordIndex{})

	if err := uc.Process(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error")
	}
	final := repo.docs["doc-1"]
	if final.Status != domain.DocumentStatusFailed || final.Error == "" {
		t.Fatalf("failure not persisted: %+v", final)
	}
}

func TestProcessUnknownDocument(t *testing.T) {
	uc := NewProcessUseCase(discardLogger(), newFakeRepo(), newFakeStorage(),
		&fakeExtractor{}, &fixedChunker{}, &fakeEmbedder{}, &recordingVectorIndex{}, &recordingKeywordIndex{})
	if err := uc.Process(context.Background(), "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("got %v", err)
	}
}
