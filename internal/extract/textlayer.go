package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// TextLayer reads the embedded PDF text layer. It is the cheapest strategy
// and handles the common case of born-digital textbooks.
type TextLayer struct{}

// NewTextLayer creates the text layer strategy.
func NewTextLayer() *TextLayer {
	return &TextLayer{}
}

// Name implements Strategy.
func (s *TextLayer) Name() string { return "text-layer" }

// Extract implements Strategy.
func (s *TextLayer) Extract(_ context.Context, doc domain.Document) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("drain text layer: %w", err)
	}
	return buf.String(), nil
}
