// Package embedding batches chunk texts through an embedding provider with
// bounded concurrency and a fixed pause between groups to stay under
// provider rate limits.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Embedder turns one text into one vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Batcher embeds texts in sequential groups. Texts inside a group run
// concurrently; groups are separated by a pause.
type Batcher struct {
	embed     Embedder
	groupSize int
	pause     time.Duration
	logger    *zap.Logger
}

// NewBatcher creates a batcher. A non-positive group size falls back to 20.
func NewBatcher(embed Embedder, groupSize int, pause time.Duration, logger *zap.Logger) *Batcher {
	if groupSize <= 0 {
		groupSize = 20
	}
	return &Batcher{embed: embed, groupSize: groupSize, pause: pause, logger: logger}
}

// EmbedBatch returns one vector per input text, in input order. Any single
// failure fails the whole call; partial progress is discarded so callers
// never index a half-embedded corpus.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += b.groupSize {
		end := min(start+b.groupSize, len(texts))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := b.embed.Embed(gctx, texts[i])
				if err != nil {
					return fmt.Errorf("embed text %d: %w", i, err)
				}
				out[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		b.logger.Debug("embedded group",
			zap.Int("from", start),
			zap.Int("to", end-1),
			zap.Int("total", len(texts)))

		if end < len(texts) && b.pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.pause):
			}
		}
	}

	return out, nil
}
