package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/mkravets/docqa/internal/core/domain"
)

// statusFor maps domain error kinds to HTTP statuses. Unknown errors
// stay 500 so internals never leak retryability hints by accident.
func statusFor(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusGatewayTimeout:
		return "the operation timed out"
	case http.StatusServiceUnavailable:
		return "a dependency is unavailable, try again later"
	default:
		return "internal error"
	}
}
