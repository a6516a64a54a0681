package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
	"github.com/mkravets/docqa/internal/observability/metrics"
)

// Server wires the HTTP surface to the use cases.
type Server struct {
	log      *slog.Logger
	answerer ports.QuestionAnswerer
	ingestor ports.DocumentIngestor
	reader   ports.DocumentReader
	health   ports.HealthReporter
	cache    ports.CacheStore
	httpM    *metrics.HTTPMetrics
	ragM     *metrics.RAGMetrics
	limiter  *rate.Limiter
}

type ServerDeps struct {
	Log      *slog.Logger
	Answerer ports.QuestionAnswerer
	Ingestor ports.DocumentIngestor
	Reader   ports.DocumentReader
	Health   ports.HealthReporter
	Cache    ports.CacheStore
	HTTP     *metrics.HTTPMetrics
	RAG      *metrics.RAGMetrics
	Limiter  *rate.Limiter
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log,
		answerer: deps.Answerer,
		ingestor: deps.Ingestor,
		reader:   deps.Reader,
		health:   deps.Health,
		cache:    deps.Cache,
		httpM:    deps.HTTP,
		ragM:     deps.RAG,
		limiter:  deps.Limiter,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /healthz", http.HandlerFunc(s.handleHealth))
	s.handle(mux, "POST /v1/documents", http.HandlerFunc(s.handleUpload))
	s.handle(mux, "GET /v1/documents", http.HandlerFunc(s.handleListDocuments))
	s.handle(mux, "GET /v1/documents/{id}", http.HandlerFunc(s.handleGetDocument))
	s.handle(mux, "DELETE /v1/documents/{id}", http.HandlerFunc(s.handleDeleteDocument))
	s.handle(mux, "POST /v1/query", http.HandlerFunc(s.handleQuery))
	s.handle(mux, "POST /v1/query/web", http.HandlerFunc(s.handleWebQuery))
	s.handle(mux, "GET /v1/cache/stats", http.HandlerFunc(s.handleCacheStats))
	if s.httpM != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.httpM.Registry, promhttp.HandlerOpts{}))
	}

	var h http.Handler = mux
	if s.limiter != nil {
		h = rateLimitMiddleware(s.limiter, h)
	}
	h = accessLogMiddleware(s.log, h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	if s.httpM != nil {
		h = instrument(s.httpM, pattern, h)
	}
	mux.Handle(pattern, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	report := s.health.Health(r.Context())
	code := http.StatusOK
	if report.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

type queryRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.recordDecision(answer)
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleWebQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := s.answerer.AnswerFromWeb(r.Context(), req.Question)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	doc, err := s.ingestor.Ingest(r.Context(), header.Filename, contentType, header.Size, file)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, documentResponse(doc))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.reader.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.ingestor.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.reader.List(r.Context(), 100)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]domain.CacheStats{
		"embedding": s.cache.Stats("embedding"),
		"websearch": s.cache.Stats("websearch"),
		"search":    s.cache.Stats("search"),
	})
}

func (s *Server) recordDecision(answer domain.Answer) {
	if s.ragM == nil {
		return
	}
	s.ragM.Decisions.WithLabelValues(string(answer.Intent), string(answer.Decision)).Inc()
	if answer.Decision == domain.RelevanceUsable && answer.Confidence > 0 {
		s.ragM.Confidence.Observe(answer.Confidence)
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request_failed", "path", r.URL.Path, "status", status, "error", err.Error())
	}
	writeError(w, status, publicMessage(status))
}

func documentResponse(doc domain.Document) map[string]any {
	return map[string]any{
		"id":           doc.ID,
		"filename":     doc.Filename,
		"content_type": doc.ContentType,
		"size_bytes":   doc.SizeBytes,
		"status":       string(doc.Status),
		"chunk_count":  doc.ChunkCount,
		"error":        doc.Error,
		"created_at":   doc.CreatedAt,
		"updated_at":   doc.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
