package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/mkravets/docqa/internal/core/domain"
)

func TestPutGetDelete(t *testing.T) {
	store, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "documents/doc-1", strings.NewReader("contents")); err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, err := store.Get(ctx, "documents/doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "contents" {
		t.Fatalf("got %q", data)
	}

	if err := store.Delete(ctx, "documents/doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "documents/doc-1"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
}

func TestPathTraversalIsRejected(t *testing.T) {
	store, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, path := range []string{"../escape", "/etc/passwd", "a/../../b"} {
		if err := store.Put(context.Background(), path, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("path %q: expected invalid-input kind, got %v", path, err)
		}
	}
}
