// Package extract turns raw document bytes into plain text. PDF extraction
// runs a cascade of strategies: each one is tried in order until one yields
// non-empty text, so scanned books still come out of the pipe even when the
// text layer is missing or broken.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/domain"
	"github.com/aliment-labs/nutriqa/internal/metrics"
)

// Strategy is a single text extraction engine.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc domain.Document) (string, error)
}

// Extractor routes a document to the right extraction path by format.
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New creates an extractor. Strategies are tried in the given order for
// PDF documents.
func New(logger *zap.Logger, strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract returns the raw text of a document. Plain text passes through
// unchanged. PDFs walk the strategy cascade; a strategy failure or empty
// result falls through to the next one, and only the exhausted cascade
// is an error.
func (e *Extractor) Extract(ctx context.Context, doc domain.Document) (string, error) {
	switch doc.Format {
	case domain.FormatPlainText:
		return string(doc.Data), nil
	case domain.FormatPDF:
		return e.extractPDF(ctx, doc)
	default:
		return "", fmt.Errorf("%s: %w", doc.Source, domain.ErrUnsupportedFormat)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, doc domain.Document) (string, error) {
	var lastErr error
	for i, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := s.Extract(ctx, doc)
		if err == nil && strings.TrimSpace(text) != "" {
			if i > 0 {
				e.logger.Info("pdf extraction recovered by fallback strategy",
					zap.String("source", doc.Source),
					zap.String("strategy", s.Name()))
			}
			return text, nil
		}

		if err != nil {
			lastErr = err
		}
		metrics.IngestExtractionFallbacks.WithLabelValues(s.Name()).Inc()
		e.logger.Warn("pdf extraction strategy fell through",
			zap.String("source", doc.Source),
			zap.String("strategy", s.Name()),
			zap.Error(err))
	}

	if lastErr != nil {
		return "", fmt.Errorf("%s: %w: %w", doc.Source, domain.ErrExtractionFailed, lastErr)
	}
	return "", fmt.Errorf("%s: all strategies returned empty text: %w", doc.Source, domain.ErrExtractionFailed)
}
