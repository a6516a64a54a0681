package bleve

import (
	"context"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

type chunkDoc struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
}

// Index is a full-text chunk index. Chunks are stored under
// domain.ChunkID so keyword hits and vector hits share identifiers.
type Index struct {
	idx bleve.Index
}

var _ ports.KeywordIndex = (*Index)(nil)

// Open opens the index at path, creating it when absent. An empty path
// selects an in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, domain.WrapError(domain.ErrUnavailable, "open keyword index", err)
		}
		return &Index{idx: idx}, nil
	}
	if _, statErr := os.Stat(path); statErr == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, domain.WrapError(domain.ErrUnavailable, "open keyword index", err)
		}
		return &Index{idx: idx}, nil
	}
	idx, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "open keyword index", err)
	}
	return &Index{idx: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase and tokenize without stemming, so a
	// query term matches the exact word it was indexed as.
	textField.Analyzer = standard.Name
	keywordField := bleve.NewKeywordFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("document_id", keywordField)
	doc.AddFieldMappingsAt("filename", textField)
	doc.AddFieldMappingsAt("text", textField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

func (i *Index) IndexChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	batch := i.idx.NewBatch()
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := batch.Index(domain.ChunkID(c.DocumentID, c.Index), chunkDoc{
			DocumentID: c.DocumentID,
			Filename:   doc.Filename,
			Text:       c.Text,
		})
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, "index chunk", err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return domain.WrapError(domain.ErrTemporary, "index chunks", err)
	}
	return nil
}

// Search runs a match query over the chunk text and returns candidates
// ranked by BM25 score, higher is better.
func (i *Index) Search(ctx context.Context, query string, topN int) ([]domain.RetrievalCandidate, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, topN, 0, false)
	req.Fields = []string{"document_id", "filename", "text"}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "keyword search", err)
	}

	out := make([]domain.RetrievalCandidate, 0, len(res.Hits))
	for n, hit := range res.Hits {
		out = append(out, domain.RetrievalCandidate{
			SourceID:   hit.ID,
			DocumentID: stringField(hit.Fields, "document_id"),
			Filename:   stringField(hit.Fields, "filename"),
			Text:       stringField(hit.Fields, "text"),
			Rank:       n + 1,
			Score:      hit.Score,
		})
	}
	return out, nil
}

func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	q := bleve.NewTermQuery(documentID)
	q.SetField("document_id")
	req := bleve.NewSearchRequestOptions(q, 1000, 0, false)
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete document chunks", err)
	}
	batch := i.idx.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	if err := i.idx.Batch(batch); err != nil {
		return domain.WrapError(domain.ErrTemporary, "delete document chunks", err)
	}
	return nil
}

func (i *Index) Close() error {
	return i.idx.Close()
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	if vs, ok := fields[name].([]interface{}); ok {
		parts := make([]string, 0, len(vs))
		for _, v := range vs {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
