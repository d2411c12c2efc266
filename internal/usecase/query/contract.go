package query

import (
	"context"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index answers top-K nearest-neighbor queries.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error)
}

// Generator produces answer text from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}
