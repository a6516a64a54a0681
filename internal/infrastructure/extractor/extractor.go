package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

// Extractor pulls plain text out of uploaded files. PDFs go through a
// real parser; text-like types pass through as-is.
type Extractor struct{}

var _ ports.TextExtractor = (*Extractor)(nil)

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Extract(ctx context.Context, contentType string, r io.Reader) (string, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	switch {
	case mediaType == "application/pdf":
		return e.extractPDF(ctx, r)
	case mediaType == "text/plain" || mediaType == "text/markdown" || strings.HasPrefix(mediaType, "text/"):
		data, err := io.ReadAll(r)
		if err != nil {
			return "", domain.WrapError(domain.ErrTemporary, "read text", err)
		}
		return string(data), nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported content type %q", contentType))
	}
}

func (e *Extractor) extractPDF(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "read pdf", err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	var sb strings.Builder
	for page := 1; page <= reader.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages, keep the rest
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse pdf", fmt.Errorf("no extractable text"))
	}
	return out, nil
}
