// Package index implements the vector index boundary over a Redis FT
// index: ensure-exists, idempotent batched upserts keyed by chunk id,
// and top-K nearest-neighbor queries with metadata.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aliment-labs/nutriqa/internal/db"
	"github.com/aliment-labs/nutriqa/internal/domain"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexReady(ctx context.Context, name string) (bool, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config holds index parameters fixed at startup.
type Config struct {
	Name            string
	KeyPrefix       string
	Dimension       int
	Metric          db.DistanceMetric
	HNSWM           int
	HNSWEFConstruct int
	UpsertBatchSize int
	ReadyTimeout    time.Duration
}

// Repo implements the vector index boundary used by the ingestion and
// query pipelines.
type Repo struct {
	store store
	cfg   Config
}

// New creates an index repository.
func New(s store, cfg Config) *Repo {
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = 100
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = time.Minute
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index if absent and blocks until it reports
// ready. The dimension and metric are fixed at creation time, not checked
// per write.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w: %w", r.cfg.Name, domain.ErrIndexUnavailable, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.cfg.Name,
		Prefixes: []string{r.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorDim:         r.cfg.Dimension,
				VectorDistance:    r.cfg.Metric,
				VectorM:           r.cfg.HNSWM,
				VectorEFConstruct: r.cfg.HNSWEFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w: %w", r.cfg.Name, domain.ErrIndexUnavailable, err)
	}

	return r.waitReady(ctx)
}

// waitReady polls FT.INFO until background indexing settles.
func (r *Repo) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		ready, err := r.store.IndexReady(ctx, r.cfg.Name)
		if err != nil {
			return fmt.Errorf("index %s readiness: %w: %w", r.cfg.Name, domain.ErrIndexUnavailable, err)
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("index %s not ready: %w: %w", r.cfg.Name, domain.ErrIndexUnavailable, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Upsert uploads records in fixed-size batches, sequentially. Re-upserting
// the same chunk id overwrites in place, so retried runs never duplicate.
func (r *Repo) Upsert(ctx context.Context, records []domain.IndexedVector) error {
	for start := 0; start < len(records); start += r.cfg.UpsertBatchSize {
		end := min(start+r.cfg.UpsertBatchSize, len(records))

		items := make([]db.HashSetItem, 0, end-start)
		for _, rec := range records[start:end] {
			items = append(items, db.HashSetItem{
				Key:    r.cfg.KeyPrefix + rec.ID,
				Fields: buildHashFields(&rec),
			})
		}

		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("upsert records %d-%d: %w: %w", start, end-1, domain.ErrIndexUnavailable, err)
		}
	}
	return nil
}

// Query returns the topK nearest chunks with metadata, in similarity rank
// order. Zero hits yields an empty slice and nil error.
func (r *Repo) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	q := &db.KNNQuery{
		IndexName:    r.cfg.Name,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"text", "source", "chunk_index", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w: %w", r.cfg.Name, domain.ErrIndexUnavailable, err)
	}
	if sr == nil || sr.Total == 0 {
		return []domain.Match{}, nil
	}

	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		matches = append(matches, parseMatch(entry))
	}
	return matches, nil
}
