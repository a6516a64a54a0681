package domain

import (
	"fmt"
	"time"
)

// Health describes the readiness of the answering path: whether the
// generation backend answers its probe and how many chunks are indexed.
type Health struct {
	Status        string `json:"status"`
	Generator     string `json:"generator"`
	IndexedChunks int    `json:"indexed_chunks"`
}

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string
	Filename    string
	ContentType string
	SizeBytes   int64
	StoragePath string
	Status      DocumentStatus
	ChunkCount  int
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is one indexed window of a document's extracted text.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
}

// ChunkID is the identifier a chunk is indexed under in both the
// keyword and the vector index, so fused hits line up across backends.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}
