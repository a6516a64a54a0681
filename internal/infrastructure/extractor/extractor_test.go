package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/mkravets/docqa/internal/core/domain"
)

func TestExtractPlainText(t *testing.T) {
	e := New()
	out, err := e.Extract(context.Background(), "text/plain; charset=utf-8", strings.NewReader("hola mundo"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != "hola mundo" {
		t.Fatalf("got %q", out)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "image/png", strings.NewReader("binary"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	e := New()
	_, err := e.Extract(context.Background(), "application/pdf", strings.NewReader("not a pdf"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input kind, got %v", err)
	}
}
