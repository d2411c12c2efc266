package ingest

import (
	"context"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// Extractor turns a raw document into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document) (string, error)
}

// Embedder converts a batch of texts into vectors, one per text, in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the vector index boundary the pipeline writes to.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []domain.IndexedVector) error
}

// Progress receives pipeline stage updates.
type Progress interface {
	OnProgress(stage string, completed, total int)
}
