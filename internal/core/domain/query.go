package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

type Intent string

const (
	IntentGreeting      Intent = "GREETING"
	IntentDocumentQuery Intent = "DOCUMENT_QUERY"
)

// Query is an immutable view of an incoming question. Normalized holds the
// trimmed, case-folded text and CacheKey is a deterministic hash of it, so
// the same question always maps to the same cache entries.
type Query struct {
	Raw        string
	Normalized string
	CacheKey   string
}

func NewQuery(raw string) (Query, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Query{}, WrapError(ErrInvalidInput, "new query", fmt.Errorf("question is empty"))
	}
	return Query{
		Raw:        strings.TrimSpace(raw),
		Normalized: normalized,
		CacheKey:   CacheKeyFor(normalized),
	}, nil
}

// CacheKeyFor derives the cache key used for any text-addressed cache entry.
func CacheKeyFor(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:16])
}
