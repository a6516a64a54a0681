package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// skipFailure marks an attempt error that must not count against the
// breaker. gobreaker sees it as a success so consecutive-failure counting
// only tracks errors the classifier recorded.
type skipFailure struct{ err error }

func (s skipFailure) Error() string { return s.err.Error() }
func (s skipFailure) Unwrap() error { return s.err }

// Breaker guards one downstream dependency. Call sites that talk to the
// same dependency must share the same Breaker instance.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker opens after failureThreshold consecutive recorded failures
// and allows a single trial call after resetTimeout.
func NewBreaker(name string, failureThreshold uint32, resetTimeout time.Duration) *Breaker {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var skip skipFailure
			return errors.As(err, &skip)
		},
	})
	return &Breaker{name: name, cb: cb}
}

func (b *Breaker) Name() string { return b.name }

// State reports CLOSED, OPEN or HALF_OPEN.
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "OPEN"
	case gobreaker.StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
