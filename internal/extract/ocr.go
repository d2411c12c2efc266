package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// OCR runs Tesseract over the document bytes. It is the last, slowest
// resort for scanned books with no usable text layer at all.
type OCR struct {
	language string
}

// NewOCR creates the OCR strategy. An empty language defaults to English.
func NewOCR(language string) *OCR {
	if language == "" {
		language = "eng"
	}
	return &OCR{language: language}
}

// Name implements Strategy.
func (s *OCR) Name() string { return "ocr" }

// Extract implements Strategy. Each call gets its own Tesseract client;
// the cgo handle is not safe to share across goroutines.
func (s *OCR) Extract(ctx context.Context, doc domain.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(s.language); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(doc.Data); err != nil {
		return "", fmt.Errorf("load ocr input: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
