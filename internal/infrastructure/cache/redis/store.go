package redis

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mkravets/docqa/internal/core/domain"
)

// Namespaces used by the application. Each one carries its own default
// TTL and its own hit/miss counters.
const (
	NamespaceEmbedding = "embedding"
	NamespaceWebSearch = "websearch"
	NamespaceSearch    = "search"
)

type nsCounter struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Store is a namespaced byte cache on Redis. Backend failures are
// absorbed: a failed Get behaves as a miss for the caller (without
// counting into the stats) and a failed Set is logged and dropped, so
// cache trouble never breaks a request.
type Store struct {
	client *goredis.Client
	log    *slog.Logger
	ttls   map[string]time.Duration

	mu       sync.Mutex
	counters map[string]*nsCounter
}

func NewStore(client *goredis.Client, log *slog.Logger, ttls map[string]time.Duration) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		client:   client,
		log:      log,
		ttls:     ttls,
		counters: make(map[string]*nsCounter),
	}
}

func (s *Store) counter(namespace string) *nsCounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[namespace]
	if !ok {
		c = &nsCounter{}
		s.counters[namespace] = c
	}
	return c
}

func (s *Store) key(namespace, key string) string {
	return namespace + ":" + key
}

func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(namespace, key)).Bytes()
	if err == goredis.Nil {
		s.counter(namespace).misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		s.log.Warn("cache_get_failed", "namespace", namespace, "error", err.Error())
		return nil, false, nil
	}
	s.counter(namespace).hits.Add(1)
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttls[namespace]
	}
	if err := s.client.Set(ctx, s.key(namespace, key), value, ttl).Err(); err != nil {
		s.log.Warn("cache_set_failed", "namespace", namespace, "error", err.Error())
	}
	return nil
}

func (s *Store) Stats(namespace string) domain.CacheStats {
	c := s.counter(namespace)
	stats := domain.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats
}
