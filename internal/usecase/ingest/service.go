// Package ingest drives the offline pipeline: read a corpus directory,
// extract and normalize each document, chunk, embed, and index.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/chunker"
	"github.com/aliment-labs/nutriqa/internal/domain"
	"github.com/aliment-labs/nutriqa/internal/extract"
	"github.com/aliment-labs/nutriqa/internal/metrics"
)

// Service runs the ingestion pipeline end to end.
type Service struct {
	extractor Extractor
	embedder  Embedder
	index     Index
	chunks    *chunker.Chunker
	progress  Progress

	// CheckpointPath, when set, receives a JSON artifact of every chunked
	// document before embedding starts. Useful for inspecting what went in.
	checkpointPath string
	logger         *zap.Logger
}

// Config wires the pipeline's collaborators.
type Config struct {
	Extractor      Extractor
	Embedder       Embedder
	Index          Index
	Chunker        *chunker.Chunker
	Progress       Progress
	CheckpointPath string
	Logger         *zap.Logger
}

// New creates the ingestion service. A nil Progress is replaced with a
// no-op reporter.
func New(cfg Config) *Service {
	p := cfg.Progress
	if p == nil {
		p = nopProgress{}
	}
	return &Service{
		extractor:      cfg.Extractor,
		embedder:       cfg.Embedder,
		index:          cfg.Index,
		chunks:         cfg.Chunker,
		progress:       p,
		checkpointPath: cfg.CheckpointPath,
		logger:         cfg.Logger,
	}
}

// Summary reports what a run did.
type Summary struct {
	Documents int
	Skipped   int
	Chunks    int
}

// chunkedDoc pairs a document title with its chunks, for the checkpoint
// artifact and for flattening.
type chunkedDoc struct {
	Title  string         `json:"title"`
	Chunks []domain.Chunk `json:"chunks"`
}

// Run executes the full pipeline over every supported file in dir.
// Documents with unsupported extensions are skipped and counted; any other
// failure aborts the whole run so the index never holds a partial corpus.
func (s *Service) Run(ctx context.Context, dir string) (Summary, error) {
	var sum Summary

	entries, err := os.ReadDir(dir)
	if err != nil {
		return sum, fmt.Errorf("read corpus dir %s: %w", dir, err)
	}

	// Count supported documents up front so progress totals stay fixed
	// while the loop runs.
	totalDocs := 0
	for _, entry := range entries {
		if !entry.IsDir() && domain.FormatForFile(entry.Name()) != domain.FormatUnsupported {
			totalDocs++
		}
	}

	var docs []chunkedDoc
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		format := domain.FormatForFile(name)
		if format == domain.FormatUnsupported {
			sum.Skipped++
			metrics.IngestDocumentsTotal.WithLabelValues("skipped").Inc()
			s.logger.Info("skipping unsupported file", zap.String("file", name))
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
			return sum, fmt.Errorf("read %s: %w", name, err)
		}

		doc := domain.Document{
			Title:  domain.TitleForFile(name),
			Source: name,
			Format: format,
			Data:   data,
		}

		text, err := s.extractor.Extract(ctx, doc)
		if err != nil {
			metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
			return sum, fmt.Errorf("extract %s: %w", name, err)
		}

		parts := s.chunks.Split(extract.Normalize(text))
		chunks := chunker.Wrap(doc.Title, doc.Source, parts)

		docs = append(docs, chunkedDoc{Title: doc.Title, Chunks: chunks})
		sum.Documents++
		sum.Chunks += len(chunks)
		metrics.IngestDocumentsTotal.WithLabelValues("processed").Inc()
		metrics.IngestChunksTotal.Add(float64(len(chunks)))

		s.progress.OnProgress("chunked", sum.Documents, totalDocs)
		s.logger.Info("document chunked",
			zap.String("title", doc.Title),
			zap.Int("chunks", len(chunks)))
	}

	if s.checkpointPath != "" {
		if err := s.writeCheckpoint(docs); err != nil {
			return sum, err
		}
	}

	if err := s.index.EnsureIndex(ctx); err != nil {
		return sum, err
	}

	flat := flatten(docs)
	if len(flat) == 0 {
		s.logger.Warn("no chunks produced, nothing to index", zap.String("dir", dir))
		return sum, nil
	}

	texts := make([]string, len(flat))
	for i, ch := range flat {
		texts[i] = ch.Text
	}

	s.progress.OnProgress("embedding", 0, len(texts))
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return sum, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(flat) {
		return sum, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(flat))
	}
	s.progress.OnProgress("embedding", len(texts), len(texts))

	records := make([]domain.IndexedVector, len(flat))
	for i, ch := range flat {
		records[i] = domain.IndexedVector{
			ID:         ch.ID,
			Values:     vectors[i],
			Text:       ch.Text,
			Source:     ch.Source,
			ChunkIndex: ch.Index,
		}
	}

	s.progress.OnProgress("indexing", 0, len(records))
	if err := s.index.Upsert(ctx, records); err != nil {
		return sum, err
	}
	s.progress.OnProgress("indexing", len(records), len(records))

	return sum, nil
}

func (s *Service) writeCheckpoint(docs []chunkedDoc) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(s.checkpointPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", s.checkpointPath, err)
	}
	s.logger.Info("checkpoint written",
		zap.String("path", s.checkpointPath),
		zap.Int("documents", len(docs)))
	return nil
}

func flatten(docs []chunkedDoc) []domain.Chunk {
	var total int
	for _, d := range docs {
		total += len(d.Chunks)
	}
	flat := make([]domain.Chunk, 0, total)
	for _, d := range docs {
		flat = append(flat, d.Chunks...)
	}
	return flat
}

type nopProgress struct{}

func (nopProgress) OnProgress(string, int, int) {}

// LogProgress reports pipeline stages through a zap logger.
type LogProgress struct {
	Logger *zap.Logger
}

// OnProgress implements Progress.
func (p LogProgress) OnProgress(stage string, completed, total int) {
	p.Logger.Info("ingest progress",
		zap.String("stage", stage),
		zap.Int("completed", completed),
		zap.Int("total", total))
}
