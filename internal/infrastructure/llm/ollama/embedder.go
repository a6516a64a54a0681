package ollama

import (
	"context"
	"errors"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
	"github.com/mkravets/docqa/internal/infrastructure/resilience"
)

// Embedder runs embedding calls under the resilience policies. Any
// failure surfaces as domain.ErrEmbeddingUnavailable so the retrieval
// path can degrade to keyword-only search.
type Embedder struct {
	client  *Client
	exec    *resilience.Executor
	breaker *resilience.Breaker
	timeout resilience.TimeoutPolicy
	retry   resilience.RetryPolicy
}

var _ ports.Embedder = (*Embedder)(nil)

func NewEmbedder(client *Client, exec *resilience.Executor, breaker *resilience.Breaker, timeout resilience.TimeoutPolicy, retry resilience.RetryPolicy) *Embedder {
	return &Embedder{client: client, exec: exec, breaker: breaker, timeout: timeout, retry: retry}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.exec.Execute(ctx, "ollama.embed", e.timeout, e.retry, e.breaker, classifyError, func(ctx context.Context) error {
		v, err := e.client.Embed(ctx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", err)
	}
	return vector, nil
}
