package domain

type RelevanceStatus string

const (
	RelevanceUsable      RelevanceStatus = "USABLE"
	RelevanceLow         RelevanceStatus = "LOW_RELEVANCE"
	RelevanceNoDocuments RelevanceStatus = "NO_DOCUMENTS"
)

type SuggestedAction string

const (
	ActionUploadDocuments SuggestedAction = "upload_documents"
	ActionWebSearch       SuggestedAction = "web_search"
	ActionRetryLater      SuggestedAction = "retry_later"
)

// RetrievalCandidate is one ranked hit from a single retrieval backend.
// Rank is 1-based within the backend that produced it. Score keeps the
// backend's native semantics: lexical scores are higher-is-better, vector
// scores are distances where lower is better.
type RetrievalCandidate struct {
	SourceID   string
	DocumentID string
	Filename   string
	Text       string
	Rank       int
	Score      float64
}

// FusedResult is a candidate after reciprocal rank fusion. Distance carries
// the best vector distance observed for the source when the source appeared
// in the vector ranking at all.
type FusedResult struct {
	SourceID    string
	DocumentID  string
	Filename    string
	Text        string
	FusedScore  float64
	Rank        int
	RankerCount int
	Distance    float64
	HasDistance bool
}

// RelevanceDecision routes a fused result set to one of the answer paths.
type RelevanceDecision struct {
	Status      RelevanceStatus
	TopDistance float64
	HasDistance bool
}

type Source struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type Snippet struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

type Answer struct {
	Text            string          `json:"text"`
	Intent          Intent          `json:"intent"`
	Decision        RelevanceStatus `json:"decision,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	Sources         []Source        `json:"sources,omitempty"`
	Snippets        []Snippet       `json:"snippets,omitempty"`
	SuggestedAction SuggestedAction `json:"suggested_action,omitempty"`
}

type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}
