package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mkravets/docqa/internal/core/domain"
)

// Executor composes the resilience policies around downstream calls in a
// fixed order: the timeout bounds the whole retry sequence, and the
// breaker is consulted on every attempt.
type Executor struct {
	log *slog.Logger
}

func NewExecutor(log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{log: log}
}

// Execute runs fn under the given policies. breaker may be nil for
// dependencies that are not breaker-guarded. The returned error carries
// domain.ErrTimeout when the overall deadline expired and
// domain.ErrUnavailable when the breaker rejected the call; a canceled
// parent context propagates as context.Canceled.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	timeout TimeoutPolicy,
	retry RetryPolicy,
	breaker *Breaker,
	classifier ErrorClassifier,
	fn func(context.Context) error,
) error {
	timeout = timeout.normalize()
	retry = retry.normalize()
	if classifier == nil {
		classifier = func(error) ErrorClassification {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return e.mapContextError(operation, err, lastErr)
		}

		err := e.runAttempt(ctx, breaker, classifier, fn)
		if err == nil {
			return nil
		}
		if isBreakerOpen(err) {
			e.log.Warn("circuit_open",
				"operation", operation,
				"breaker", breaker.Name(),
			)
			return domain.WrapError(domain.ErrUnavailable, operation, err)
		}
		lastErr = err

		class := classifier(err)
		if !class.Retryable {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.mapContextError(operation, ctxErr, lastErr)
			}
			return fmt.Errorf("%s: %w", operation, err)
		}
		if attempt == retry.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(retry, attempt)
		e.log.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error(),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return e.mapContextError(operation, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return e.mapContextError(operation, err, lastErr)
	}
	return domain.WrapError(domain.ErrTemporary, operation, lastErr)
}

// runAttempt executes fn in its own goroutine so a call that ignores
// context cancellation still returns control at the deadline.
func (e *Executor) runAttempt(ctx context.Context, breaker *Breaker, classifier ErrorClassifier, fn func(context.Context) error) error {
	call := func() error {
		done := make(chan error, 1)
		go func() { done <- fn(ctx) }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if breaker == nil {
		return call()
	}
	_, err := breaker.cb.Execute(func() (any, error) {
		err := call()
		if err != nil && !classifier(err).RecordFailure {
			return nil, skipFailure{err: err}
		}
		return nil, err
	})
	var skip skipFailure
	if errors.As(err, &skip) {
		return skip.err
	}
	return err
}

func (e *Executor) mapContextError(operation string, ctxErr, lastErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTimeout, operation, lastErr)
	}
	return ctxErr
}

func backoffDelay(retry RetryPolicy, attempt int) time.Duration {
	d := time.Duration(float64(retry.BackoffBase) * math.Pow(retry.Multiplier, float64(attempt)))
	if d > retry.BackoffMax || d <= 0 {
		d = retry.BackoffMax
	}
	return d
}
