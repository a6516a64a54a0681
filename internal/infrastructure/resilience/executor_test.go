package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkravets/docqa/internal/core/domain"
)

func testExecutor() *Executor {
	return NewExecutor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BackoffBase: time.Millisecond, BackoffMax: 5 * time.Millisecond, Multiplier: 2}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := testExecutor()
	var calls int32
	err := exec.Execute(context.Background(), "flaky", TimeoutPolicy{Timeout: time.Second}, fastRetry(3), nil, nil,
		func(context.Context) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return errors.New("transient")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	exec := testExecutor()
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
	var calls int32
	err := exec.Execute(context.Background(), "fatal", TimeoutPolicy{Timeout: time.Second}, fastRetry(5), nil, classifier,
		func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("bad request")
		})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d attempts", got)
	}
}

func TestExecuteTimeoutCoversAllAttempts(t *testing.T) {
	exec := testExecutor()
	retry := RetryPolicy{MaxAttempts: 10, BackoffBase: 50 * time.Millisecond, BackoffMax: 50 * time.Millisecond, Multiplier: 1}
	start := time.Now()
	err := exec.Execute(context.Background(), "slow", TimeoutPolicy{Timeout: 80 * time.Millisecond}, retry, nil, nil,
		func(context.Context) error { return errors.New("transient") })
	if !domain.IsKind(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("deadline did not bound the retry sequence, took %v", elapsed)
	}
}

func TestExecuteTimeoutInterruptsStuckCall(t *testing.T) {
	exec := testExecutor()
	err := exec.Execute(context.Background(), "stuck", TimeoutPolicy{Timeout: 30 * time.Millisecond}, fastRetry(1), nil, nil,
		func(ctx context.Context) error {
			<-make(chan struct{}) // never returns on its own
			return nil
		})
	if !domain.IsKind(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}

func TestExecuteCancellationPropagates(t *testing.T) {
	exec := testExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := exec.Execute(ctx, "canceled", TimeoutPolicy{Timeout: time.Second}, fastRetry(3), nil, nil,
		func(context.Context) error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBreakerOpensAndFailsFast(t *testing.T) {
	exec := testExecutor()
	breaker := NewBreaker("test", 2, time.Minute)
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
	var calls int32
	fail := func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("down")
	}
	for i := 0; i < 2; i++ {
		if err := exec.Execute(context.Background(), "dep", TimeoutPolicy{Timeout: time.Second}, fastRetry(1), breaker, classifier, fail); err == nil {
			t.Fatal("expected failure")
		}
	}
	if breaker.State() != "OPEN" {
		t.Fatalf("expected OPEN after threshold, got %s", breaker.State())
	}

	before := atomic.LoadInt32(&calls)
	err := exec.Execute(context.Background(), "dep", TimeoutPolicy{Timeout: time.Second}, fastRetry(3), breaker, classifier, fail)
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable kind while open, got %v", err)
	}
	if atomic.LoadInt32(&calls) != before {
		t.Fatal("open breaker must fail fast without invoking the call")
	}
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	exec := testExecutor()
	breaker := NewBreaker("trial", 1, 20*time.Millisecond)
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
	fail := func(context.Context) error { return errors.New("down") }
	ok := func(context.Context) error { return nil }

	if err := exec.Execute(context.Background(), "dep", TimeoutPolicy{Timeout: time.Second}, fastRetry(1), breaker, classifier, fail); err == nil {
		t.Fatal("expected failure")
	}
	if breaker.State() != "OPEN" {
		t.Fatalf("expected OPEN, got %s", breaker.State())
	}

	time.Sleep(40 * time.Millisecond)
	if err := exec.Execute(context.Background(), "dep", TimeoutPolicy{Timeout: time.Second}, fastRetry(1), breaker, classifier, ok); err != nil {
		t.Fatalf("trial call should pass through, got %v", err)
	}
	if breaker.State() != "CLOSED" {
		t.Fatalf("successful trial must close the breaker, got %s", breaker.State())
	}
}

func TestBreakerIgnoresUnrecordedFailures(t *testing.T) {
	exec := testExecutor()
	breaker := NewBreaker("soft", 1, time.Minute)
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	fail := func(context.Context) error { return errors.New("client error") }

	for i := 0; i < 5; i++ {
		if err := exec.Execute(context.Background(), "dep", TimeoutPolicy{Timeout: time.Second}, fastRetry(1), breaker, classifier, fail); err == nil {
			t.Fatal("expected failure")
		}
	}
	if breaker.State() != "CLOSED" {
		t.Fatalf("unrecorded failures must not trip the breaker, got %s", breaker.State())
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	retry := RetryPolicy{BackoffBase: 100 * time.Millisecond, BackoffMax: 300 * time.Millisecond, Multiplier: 2}.normalize()
	if d := backoffDelay(retry, 0); d != 100*time.Millisecond {
		t.Fatalf("attempt 0: got %v", d)
	}
	if d := backoffDelay(retry, 1); d != 200*time.Millisecond {
		t.Fatalf("attempt 1: got %v", d)
	}
	if d := backoffDelay(retry, 2); d != 300*time.Millisecond {
		t.Fatalf("attempt 2 must cap at max: got %v", d)
	}
}
