package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/mkravets/docqa/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx response from the Ollama server.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama: status %d: %s", e.StatusCode, e.Body)
}

// classifyError decides how the executor treats a failed model call.
// Client-side cancellation is neither retried nor held against the
// server; a deadline counts as a server failure but retrying inside the
// same budget is pointless. 4xx responses other than 408/429 are caller
// bugs and stay off the breaker.
func classifyError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == 408 || statusErr.StatusCode == 429:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		case statusErr.StatusCode >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	// Connection refused and friends arrive as *url.Error wrapping an
	// *net.OpError, which the net.Error branch already caught. Anything
	// left is unknown, retry once but record it.
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
