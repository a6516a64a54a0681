package resilience

import "time"

// TimeoutPolicy bounds one Execute call end to end, covering every retry
// attempt and the backoff pauses between them.
type TimeoutPolicy struct {
	Timeout time.Duration
}

// RetryPolicy controls the attempt loop. Delay before attempt n (0-based,
// counting from the first retry) is BackoffBase*Multiplier^n, capped at
// BackoffMax.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Multiplier  float64
}

func (p TimeoutPolicy) normalize() TimeoutPolicy {
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	return p
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 100 * time.Millisecond
	}
	if p.BackoffMax <= 0 {
		p.BackoffMax = 5 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// ErrorClassification tells the executor what a failed attempt means:
// whether another attempt may help, and whether the circuit breaker
// should count it against the dependency.
type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

// ErrorClassifier maps a concrete error to its classification. Adapters
// provide one per dependency since retryability is protocol specific.
type ErrorClassifier func(err error) ErrorClassification
