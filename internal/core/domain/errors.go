package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Adapters wrap concrete failures with WrapError so the
// layers above can branch on kind without knowing the backend.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrTemporary            = errors.New("temporary failure")
	ErrTimeout              = errors.New("operation timed out")
	ErrUnavailable          = errors.New("dependency unavailable")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

// WrapError annotates err with an operation name and an error kind.
// The kind stays visible to errors.Is through the chain.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", operation, kind)
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
