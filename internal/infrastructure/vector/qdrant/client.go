package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

// Client talks to Qdrant over its REST API. Distances come back with
// Euclidean semantics, lower is better, which is what the relevance
// gate expects.
type Client struct {
	baseURL    string
	collection string
	vectorSize int
	httpClient *http.Client
}

var _ ports.VectorIndex = (*Client)(nil)

func NewClient(baseURL, collection string, vectorSize int) (*Client, error) {
	if baseURL == "" || collection == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new qdrant client", fmt.Errorf("base url and collection are required"))
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		vectorSize: vectorSize,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	return c, nil
}

// EnsureCollection creates the collection when it does not exist yet.
// A conflict response means another replica won the race, which is fine.
func (c *Client) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Euclid",
		},
	}
	status, _, err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body)
	if err != nil {
		return domain.WrapError(domain.ErrUnavailable, "ensure collection", err)
	}
	if status == http.StatusConflict {
		return nil
	}
	if status >= 400 {
		return domain.WrapError(domain.ErrUnavailable, "ensure collection", fmt.Errorf("status %d", status))
	}
	return nil
}

func (c *Client) IndexChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return domain.WrapError(domain.ErrInvalidInput, "index chunks", fmt.Errorf("%d chunks, %d vectors", len(chunks), len(vectors)))
	}
	points := make([]map[string]any, 0, len(chunks))
	for n, ch := range chunks {
		sourceID := domain.ChunkID(ch.DocumentID, ch.Index)
		points = append(points, map[string]any{
			"id":     pointID(sourceID),
			"vector": vectors[n],
			"payload": map[string]any{
				"source_id":   sourceID,
				"document_id": ch.DocumentID,
				"filename":    doc.Filename,
				"text":        ch.Text,
			},
		})
	}
	status, _, err := c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/points?wait=true", map[string]any{"points": points})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "upsert points", err)
	}
	if status >= 400 {
		return domain.WrapError(domain.ErrTemporary, "upsert points", fmt.Errorf("status %d", status))
	}
	return nil
}

func (c *Client) Search(ctx context.Context, vector []float32, topN int) ([]domain.RetrievalCandidate, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        topN,
		"with_payload": true,
	}
	status, resp, err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "vector search", err)
	}
	if status >= 400 {
		return nil, domain.WrapError(domain.ErrTemporary, "vector search", fmt.Errorf("status %d", status))
	}

	var parsed struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "decode search response", err)
	}

	out := make([]domain.RetrievalCandidate, 0, len(parsed.Result))
	for n, r := range parsed.Result {
		out = append(out, domain.RetrievalCandidate{
			SourceID:   getStringPayload(r.Payload, "source_id"),
			DocumentID: getStringPayload(r.Payload, "document_id"),
			Filename:   getStringPayload(r.Payload, "filename"),
			Text:       getStringPayload(r.Payload, "text"),
			Rank:       n + 1,
			Score:      r.Score,
		})
	}
	return out, nil
}

// Count reports the exact number of points in the collection. Zero means
// nothing has been indexed yet.
func (c *Client) Count(ctx context.Context) (int, error) {
	status, resp, err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/count", map[string]any{"exact": true})
	if err != nil {
		return 0, domain.WrapError(domain.ErrTemporary, "count points", err)
	}
	if status >= 400 {
		return 0, domain.WrapError(domain.ErrTemporary, "count points", fmt.Errorf("status %d", status))
	}
	var parsed struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return 0, domain.WrapError(domain.ErrTemporary, "decode count response", err)
	}
	return parsed.Result.Count, nil
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	status, _, err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/delete?wait=true", body)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete points", err)
	}
	if status >= 400 {
		return domain.WrapError(domain.ErrTemporary, "delete points", fmt.Errorf("status %d", status))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// pointID derives a stable UUID from the chunk identifier so re-indexing
// a document overwrites its previous points.
func pointID(sourceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sourceID)).String()
}

func getStringPayload(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
