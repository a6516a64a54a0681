package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	httpadapter "github.com/mkravets/docqa/internal/adapters/http"
	"github.com/mkravets/docqa/internal/config"
	"github.com/mkravets/docqa/internal/core/usecase"
	cacheredis "github.com/mkravets/docqa/internal/infrastructure/cache/redis"
	"github.com/mkravets/docqa/internal/infrastructure/chunking"
	"github.com/mkravets/docqa/internal/infrastructure/extractor"
	keywordbleve "github.com/mkravets/docqa/internal/infrastructure/keyword/bleve"
	"github.com/mkravets/docqa/internal/infrastructure/llm/ollama"
	natsqueue "github.com/mkravets/docqa/internal/infrastructure/queue/nats"
	"github.com/mkravets/docqa/internal/infrastructure/repository/postgres"
	"github.com/mkravets/docqa/internal/infrastructure/resilience"
	"github.com/mkravets/docqa/internal/infrastructure/storage/localfs"
	"github.com/mkravets/docqa/internal/infrastructure/vector/qdrant"
	"github.com/mkravets/docqa/internal/infrastructure/websearch/wikipedia"
	"github.com/mkravets/docqa/internal/observability/metrics"
)

// sharedDeps is the infrastructure both processes need.
type sharedDeps struct {
	db       *sql.DB
	repo     *postgres.DocumentRepository
	storage  *localfs.Storage
	queue    *natsqueue.Queue
	keyword  *keywordbleve.Index
	vector   *qdrant.Client
	embedder *ollama.Embedder
	client   *ollama.Client
	exec     *resilience.Executor
	breaker  *resilience.Breaker
	cache    *cacheredis.Store
	closers  []func() error
}

func buildShared(ctx context.Context, cfg config.Config, log *slog.Logger) (*sharedDeps, error) {
	d := &sharedDeps{}

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	d.db = db
	d.closers = append(d.closers, db.Close)
	d.repo = postgres.NewDocumentRepository(db)
	if err := d.repo.EnsureSchema(ctx); err != nil {
		d.Close()
		return nil, err
	}

	d.storage, err = localfs.NewStorage(cfg.StorageDir)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.queue, err = natsqueue.Connect(cfg.NATSURL, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, d.queue.Close)

	d.keyword, err = keywordbleve.Open(cfg.KeywordIndexAt)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, d.keyword.Close)

	d.vector, err = qdrant.NewClient(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorSize)
	if err != nil {
		d.Close()
		return nil, err
	}
	if err := d.vector.EnsureCollection(ctx); err != nil {
		d.Close()
		return nil, err
	}

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	d.closers = append(d.closers, redisClient.Close)
	d.cache = cacheredis.NewStore(redisClient, log, map[string]time.Duration{
		cacheredis.NamespaceEmbedding: cfg.EmbeddingCacheTTL,
		cacheredis.NamespaceWebSearch: cfg.WebSearchCacheTTL,
		cacheredis.NamespaceSearch:    cfg.SearchCacheTTL,
	})

	d.exec = resilience.NewExecutor(log)
	d.breaker = resilience.NewBreaker("ollama", uint32(cfg.BreakerFailureThreshold), cfg.BreakerResetTimeout)

	d.client, err = ollama.NewClient(cfg.OllamaURL, cfg.EmbedModel, cfg.GenerateModel)
	if err != nil {
		d.Close()
		return nil, err
	}
	retry := resilience.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	}
	d.embedder = ollama.NewEmbedder(d.client, d.exec, d.breaker,
		resilience.TimeoutPolicy{Timeout: cfg.EmbedTimeout}, retry)
	return d, nil
}

func (d *sharedDeps) Close() {
	for n := len(d.closers) - 1; n >= 0; n-- {
		_ = d.closers[n]()
	}
}

// API is the fully wired HTTP process.
type API struct {
	Handler http.Handler
	deps    *sharedDeps
}

func (a *API) Close() { a.deps.Close() }

func BuildAPI(ctx context.Context, cfg config.Config, log *slog.Logger) (*API, error) {
	deps, err := buildShared(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	retry := resilience.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	}
	generator := ollama.NewGenerator(deps.client, deps.exec, deps.breaker, ollama.GeneratorPolicies{
		GreetingTimeout: resilience.TimeoutPolicy{Timeout: cfg.GreetingTimeout},
		GreetingRetry:   resilience.RetryPolicy{MaxAttempts: 2, BackoffBase: cfg.BackoffBase, BackoffMax: cfg.BackoffMax},
		AnswerTimeout:   resilience.TimeoutPolicy{Timeout: cfg.AnswerTimeout},
		AnswerRetry:     retry,
	})

	cachingEmbedder := usecase.NewCachingEmbedder(deps.embedder, deps.cache)
	classifier := usecase.NewIntentClassifier(cachingEmbedder, cfg.GreetingThreshold)
	answerer := usecase.NewAnswerUseCase(
		log,
		classifier,
		cachingEmbedder,
		deps.keyword,
		deps.vector,
		generator,
		wikipedia.NewClient(cfg.WikipediaAPIURL),
		deps.cache,
		usecase.NewRelevanceGate(cfg.RelevanceThreshold),
		usecase.AnswerConfig{TopN: cfg.TopN, TopK: cfg.TopK, RRFConstant: cfg.RRFConstant},
	)
	ingestor := usecase.NewIngestUseCase(log, deps.repo, deps.storage, deps.queue, deps.vector, deps.keyword)

	httpMetrics := metrics.NewHTTPMetrics()
	server := httpadapter.NewServer(httpadapter.ServerDeps{
		Log:      log,
		Answerer: answerer,
		Ingestor: ingestor,
		Reader:   ingestor,
		Health:   answerer,
		Cache:    deps.cache,
		HTTP:     httpMetrics,
		RAG:      metrics.NewRAGMetrics(httpMetrics.Registry),
		Limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	})
	return &API{Handler: server.Handler(), deps: deps}, nil
}

// Worker is the fully wired indexing process.
type Worker struct {
	Metrics *metrics.WorkerMetrics
	deps    *sharedDeps
	proc    *usecase.ProcessUseCase
	log     *slog.Logger
}

func (w *Worker) Close() { w.deps.Close() }

// Run subscribes to upload events and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	err := w.deps.queue.SubscribeDocumentUploaded(ctx, func(ctx context.Context, documentID string) error {
		start := time.Now()
		err := w.proc.Process(ctx, documentID)
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		w.Metrics.DocumentsProcessed.WithLabelValues(outcome).Inc()
		w.Metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
		return err
	})
	if err != nil {
		return err
	}
	w.log.Info("worker_started")
	<-ctx.Done()
	return nil
}

func BuildWorker(ctx context.Context, cfg config.Config, log *slog.Logger) (*Worker, error) {
	deps, err := buildShared(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	cachingEmbedder := usecase.NewCachingEmbedder(deps.embedder, deps.cache)
	proc := usecase.NewProcessUseCase(
		log,
		deps.repo,
		deps.storage,
		extractor.New(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		cachingEmbedder,
		deps.vector,
		deps.keyword,
	)
	return &Worker{
		Metrics: metrics.NewWorkerMetrics(),
		deps:    deps,
		proc:    proc,
		log:     log,
	}, nil
}
