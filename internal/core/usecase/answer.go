package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

const (
	cacheNamespaceSearch    = "search"
	cacheNamespaceWebSearch = "websearch"

	fallbackGreeting    = "¡Hola! ¿En qué puedo ayudarte hoy?"
	noDocumentsMessage  = "Todavía no hay documentos indexados. Sube algunos documentos o prueba la búsqueda web."
	lowRelevanceMessage = "No encontré nada en tus documentos que responda a eso. Puedes intentar la búsqueda web."
	retryLaterMessage   = "La búsqueda no está disponible en este momento. Inténtalo de nuevo en unos minutos."
)

// AnswerConfig tunes the retrieval and fusion stage.
type AnswerConfig struct {
	TopN        int
	TopK        int
	RRFConstant int
	WebSnippets int
}

func (c AnswerConfig) normalize() AnswerConfig {
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = defaultRRFConstant
	}
	if c.WebSnippets <= 0 {
		c.WebSnippets = 3
	}
	return c
}

// AnswerUseCase routes a user question end to end: classify, retrieve
// from both indexes, fuse, gate, and generate. Backend trouble on the
// retrieval path degrades the answer instead of failing the request;
// only invalid input and generation failures surface as errors.
type AnswerUseCase struct {
	log        *slog.Logger
	classifier *IntentClassifier
	embedder   ports.Embedder
	keyword    ports.KeywordIndex
	vector     ports.VectorIndex
	generator  ports.AnswerGenerator
	searcher   ports.WebSearcher
	cache      ports.CacheStore
	gate       RelevanceGate
	cfg        AnswerConfig
}

var _ ports.QuestionAnswerer = (*AnswerUseCase)(nil)
var _ ports.HealthReporter = (*AnswerUseCase)(nil)

func NewAnswerUseCase(
	log *slog.Logger,
	classifier *IntentClassifier,
	embedder ports.Embedder,
	keyword ports.KeywordIndex,
	vector ports.VectorIndex,
	generator ports.AnswerGenerator,
	searcher ports.WebSearcher,
	cache ports.CacheStore,
	gate RelevanceGate,
	cfg AnswerConfig,
) *AnswerUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &AnswerUseCase{
		log:        log,
		classifier: classifier,
		embedder:   embedder,
		keyword:    keyword,
		vector:     vector,
		generator:  generator,
		searcher:   searcher,
		cache:      cache,
		gate:       gate,
		cfg:        cfg.normalize(),
	}
}

func (u *AnswerUseCase) Answer(ctx context.Context, question string) (domain.Answer, error) {
	query, err := domain.NewQuery(question)
	if err != nil {
		return domain.Answer{}, err
	}

	intent := u.classifier.Classify(ctx, query)
	if intent == domain.IntentGreeting {
		return u.answerGreeting(ctx, query), nil
	}
	return u.answerFromDocuments(ctx, query)
}

// answerGreeting never fails: when the model is down the canned greeting
// goes out instead.
func (u *AnswerUseCase) answerGreeting(ctx context.Context, query domain.Query) domain.Answer {
	text, err := u.generator.GenerateGreeting(ctx, query.Raw)
	if err != nil || text == "" {
		u.log.Warn("greeting_fallback", "error", errString(err))
		text = fallbackGreeting
	}
	return domain.Answer{Text: text, Intent: domain.IntentGreeting}
}

func (u *AnswerUseCase) answerFromDocuments(ctx context.Context, query domain.Query) (domain.Answer, error) {
	if count, err := u.vector.Count(ctx); err == nil && count == 0 {
		return domain.Answer{
			Text:            noDocumentsMessage,
			Intent:          domain.IntentDocumentQuery,
			Decision:        domain.RelevanceNoDocuments,
			SuggestedAction: domain.ActionUploadDocuments,
		}, nil
	}

	fused, ok := u.retrieveFused(ctx, query)
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	if !ok {
		return domain.Answer{
			Text:            retryLaterMessage,
			Intent:          domain.IntentDocumentQuery,
			SuggestedAction: domain.ActionRetryLater,
		}, nil
	}

	decision := u.gate.Evaluate(fused, false)
	u.log.Info("relevance_decision",
		"query_key", query.CacheKey,
		"decision", string(decision.Status),
		"results", len(fused),
	)

	switch decision.Status {
	case domain.RelevanceLow:
		return domain.Answer{
			Text:            lowRelevanceMessage,
			Intent:          domain.IntentDocumentQuery,
			Decision:        domain.RelevanceLow,
			SuggestedAction: domain.ActionWebSearch,
		}, nil
	default:
		text, err := u.generator.GenerateAnswer(ctx, query.Raw, fused)
		if err != nil {
			return domain.Answer{}, err
		}
		answer := domain.Answer{
			Text:     text,
			Intent:   domain.IntentDocumentQuery,
			Decision: domain.RelevanceUsable,
			Sources:  sourcesFrom(fused),
		}
		if decision.HasDistance {
			answer.Confidence = clamp01(1 - decision.TopDistance)
		}
		return answer, nil
	}
}

// retrieveFused runs both retrievers in parallel and fuses the rankings.
// The fused set for a query is cached; an unavailable embedder degrades
// to keyword-only. The second return is false when every reachable
// backend failed.
func (u *AnswerUseCase) retrieveFused(ctx context.Context, query domain.Query) ([]domain.FusedResult, bool) {
	if data, ok, _ := u.cache.Get(ctx, cacheNamespaceSearch, query.CacheKey); ok {
		var fused []domain.FusedResult
		if err := json.Unmarshal(data, &fused); err == nil {
			return fused, true
		}
	}

	vectorQuery, embedErr := u.embedder.Embed(ctx, query.Normalized)
	if embedErr != nil {
		if errors.Is(embedErr, context.Canceled) {
			return nil, false
		}
		u.log.Warn("embedding_degraded", "query_key", query.CacheKey, "error", embedErr.Error())
	}

	var (
		wg         sync.WaitGroup
		kwHits     []domain.RetrievalCandidate
		kwErr      error
		vecHits    []domain.RetrievalCandidate
		vecErr     error
		vectorUsed bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		kwHits, kwErr = u.keyword.Search(ctx, query.Normalized, u.cfg.TopN)
	}()
	if embedErr == nil {
		vectorUsed = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecHits, vecErr = u.vector.Search(ctx, vectorQuery, u.cfg.TopN)
		}()
	}
	wg.Wait()

	if kwErr != nil {
		u.log.Warn("keyword_search_failed", "query_key", query.CacheKey, "error", kwErr.Error())
	}
	if vecErr != nil {
		u.log.Warn("vector_search_failed", "query_key", query.CacheKey, "error", vecErr.Error())
	}
	if kwErr != nil && (!vectorUsed || vecErr != nil) {
		return nil, false
	}

	fused := fuseCandidatesRRF(kwHits, vecHits, u.cfg.RRFConstant, u.cfg.TopK)
	if data, err := json.Marshal(fused); err == nil {
		_ = u.cache.Set(ctx, cacheNamespaceSearch, query.CacheKey, data, 0)
	}
	return fused, true
}

// AnswerFromWeb answers from Wikipedia snippets instead of the corpus.
// Snippets are cached per query; a failed summary degrades to the raw
// snippets.
func (u *AnswerUseCase) AnswerFromWeb(ctx context.Context, question string) (domain.Answer, error) {
	query, err := domain.NewQuery(question)
	if err != nil {
		return domain.Answer{}, err
	}

	snippets, err := u.webSnippets(ctx, query)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(snippets) == 0 {
		return domain.Answer{
			Text:   "No encontré resultados en la web para esa consulta.",
			Intent: domain.IntentDocumentQuery,
		}, nil
	}

	text, err := u.generator.GenerateSummary(ctx, query.Raw, snippets)
	if err != nil || text == "" {
		u.log.Warn("web_summary_fallback", "query_key", query.CacheKey, "error", errString(err))
		text = rawSnippetText(snippets)
	}
	return domain.Answer{
		Text:     text,
		Intent:   domain.IntentDocumentQuery,
		Snippets: snippets,
	}, nil
}

// Health probes the generation backend and reports the vector index
// size. A failing probe degrades the report instead of erroring.
func (u *AnswerUseCase) Health(ctx context.Context) domain.Health {
	h := domain.Health{Status: "ok", Generator: "ok"}
	if err := u.generator.Healthy(ctx); err != nil {
		h.Status = "degraded"
		h.Generator = err.Error()
	}
	if n, err := u.vector.Count(ctx); err == nil {
		h.IndexedChunks = n
	} else {
		h.Status = "degraded"
	}
	return h
}

func (u *AnswerUseCase) webSnippets(ctx context.Context, query domain.Query) ([]domain.Snippet, error) {
	if data, ok, _ := u.cache.Get(ctx, cacheNamespaceWebSearch, query.CacheKey); ok {
		var snippets []domain.Snippet
		if err := json.Unmarshal(data, &snippets); err == nil {
			return snippets, nil
		}
	}
	snippets, err := u.searcher.Search(ctx, query.Raw, u.cfg.WebSnippets)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(snippets); err == nil {
		_ = u.cache.Set(ctx, cacheNamespaceWebSearch, query.CacheKey, data, 0)
	}
	return snippets, nil
}

func sourcesFrom(fused []domain.FusedResult) []domain.Source {
	out := make([]domain.Source, 0, len(fused))
	for _, f := range fused {
		out = append(out, domain.Source{
			DocumentID: f.DocumentID,
			Filename:   f.Filename,
			Text:       f.Text,
			Score:      f.FusedScore,
		})
	}
	return out
}

func rawSnippetText(snippets []domain.Snippet) string {
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, s.Title+": "+s.Text)
	}
	return strings.Join(parts, "\n")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
