package usecase

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

const (
	greetingMaxWords         = 5
	defaultGreetingThreshold = 0.78
)

// Leading inverted punctuation is common in Spanish greetings, so the
// anchors admit it.
var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[\s¡¿]*(hola|holi|buenas)\b`),
	regexp.MustCompile(`(?i)^[\s¡¿]*buen[oa]s?\s+(d[ií]as|tardes|noches)\b`),
	regexp.MustCompile(`(?i)^[\s¡¿]*(hi|hello|hey|howdy)\b`),
	regexp.MustCompile(`(?i)^[\s¡¿]*(qu[eé]\s+tal|c[oó]mo\s+est[aá]s?)\b`),
	regexp.MustCompile(`(?i)^[\s¡¿]*saludos\b`),
	regexp.MustCompile(`(?i)^[\s¡¿]*good\s+(morning|afternoon|evening)\b`),
}

var greetingExemplars = []string{
	"hola",
	"hola, ¿cómo estás?",
	"buenos días",
	"buenas tardes",
	"hello there",
	"hi, how are you?",
	"hey",
	"qué tal",
}

// IntentClassifier separates greetings from document questions. Short
// messages matching a greeting pattern never touch the embedder; the
// borderline short ones are compared against a centroid of greeting
// exemplars in embedding space. When embeddings are unavailable the
// classifier falls back to document-query.
type IntentClassifier struct {
	embedder  ports.Embedder
	threshold float64

	mu       sync.Mutex
	centroid []float32
}

func NewIntentClassifier(embedder ports.Embedder, threshold float64) *IntentClassifier {
	if threshold <= 0 {
		threshold = defaultGreetingThreshold
	}
	return &IntentClassifier{embedder: embedder, threshold: threshold}
}

func (c *IntentClassifier) Classify(ctx context.Context, query domain.Query) domain.Intent {
	words := strings.Fields(query.Normalized)
	if len(words) == 0 || len(words) > greetingMaxWords {
		return domain.IntentDocumentQuery
	}
	for _, p := range greetingPatterns {
		if p.MatchString(query.Normalized) {
			return domain.IntentGreeting
		}
	}
	if c.embedder == nil {
		return domain.IntentDocumentQuery
	}

	centroid, err := c.greetingCentroid(ctx)
	if err != nil {
		return domain.IntentDocumentQuery
	}
	vec, err := c.embedder.Embed(ctx, query.Normalized)
	if err != nil {
		return domain.IntentDocumentQuery
	}
	if cosineSimilarity(vec, centroid) >= c.threshold {
		return domain.IntentGreeting
	}
	return domain.IntentDocumentQuery
}

// greetingCentroid builds the exemplar centroid on first use and caches
// it for the life of the process.
func (c *IntentClassifier) greetingCentroid(ctx context.Context) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.centroid != nil {
		return c.centroid, nil
	}
	var sum []float32
	for _, ex := range greetingExemplars {
		vec, err := c.embedder.Embed(ctx, ex)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float32, len(vec))
		}
		for n := range vec {
			sum[n] += vec[n]
		}
	}
	for n := range sum {
		sum[n] /= float32(len(greetingExemplars))
	}
	c.centroid = sum
	return c.centroid, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for n := range a {
		dot += float64(a[n]) * float64(b[n])
		normA += float64(a[n]) * float64(a[n])
		normB += float64(b[n]) * float64(b[n])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
