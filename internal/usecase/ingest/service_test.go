package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/chunker"
	"github.com/aliment-labs/nutriqa/internal/domain"
)

// --- Mocks ---

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ context.Context, doc domain.Document) (string, error) {
	return string(doc.Data), nil
}

type failingExtractor struct{ err error }

func (f failingExtractor) Extract(context.Context, domain.Document) (string, error) {
	return "", f.err
}

type fakeEmbedder struct {
	calls [][]string
	short bool // return one vector fewer than asked
	err   error
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return nil, e.err
	}
	n := len(texts)
	if e.short && n > 0 {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

type fakeIndex struct {
	ensured  bool
	upserted []domain.IndexedVector
	err      error
}

func (x *fakeIndex) EnsureIndex(context.Context) error { x.ensured = true; return x.err }

func (x *fakeIndex) Upsert(_ context.Context, records []domain.IndexedVector) error {
	x.upserted = append(x.upserted, records...)
	return nil
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newService(emb Embedder, idx Index, checkpoint string) *Service {
	return New(Config{
		Extractor:      passthroughExtractor{},
		Embedder:       emb,
		Index:          idx,
		Chunker:        chunker.New(20, 5),
		CheckpointPath: checkpoint,
		Logger:         zap.NewNop(),
	})
}

// --- Tests ---

func TestRun_FullPipeline(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"macronutrients.txt": strings.Repeat("protein fat carbs ", 5),
		"vitamins.txt":       "vitamin c and d",
		"cover.png":          "not a document",
	})

	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	s := newService(emb, idx, "")

	sum, err := s.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.Documents != 2 {
		t.Errorf("documents = %d, want 2", sum.Documents)
	}
	if sum.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", sum.Skipped)
	}
	if sum.Chunks == 0 {
		t.Fatal("expected chunks")
	}
	if !idx.ensured {
		t.Error("EnsureIndex was not called")
	}
	if len(idx.upserted) != sum.Chunks {
		t.Errorf("upserted %d records for %d chunks", len(idx.upserted), sum.Chunks)
	}

	// Chunk ids carry the document title, records carry the source file.
	first := idx.upserted[0]
	if !strings.HasPrefix(first.ID, "macronutrients-chunk-") {
		t.Errorf("first record id = %q", first.ID)
	}
	if first.Source != "macronutrients.txt" {
		t.Errorf("first record source = %q", first.Source)
	}
	if len(first.Values) == 0 {
		t.Error("record has no vector")
	}
}

type recordingProgress struct {
	events []progressEvent
}

type progressEvent struct {
	stage     string
	completed int
	total     int
}

func (p *recordingProgress) OnProgress(stage string, completed, total int) {
	p.events = append(p.events, progressEvent{stage, completed, total})
}

func TestRun_ChunkProgressTotalIsFixed(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"macronutrients.txt": strings.Repeat("protein fat carbs ", 5),
		"vitamins.txt":       "vitamin c and d",
		"cover.png":          "not a document",
	})

	prog := &recordingProgress{}
	s := New(Config{
		Extractor: passthroughExtractor{},
		Embedder:  &fakeEmbedder{},
		Index:     &fakeIndex{},
		Chunker:   chunker.New(20, 5),
		Progress:  prog,
		Logger:    zap.NewNop(),
	})

	if _, err := s.Run(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var chunked []progressEvent
	for _, ev := range prog.events {
		if ev.stage == "chunked" {
			chunked = append(chunked, ev)
		}
	}
	if len(chunked) != 2 {
		t.Fatalf("chunked events = %d, want 2", len(chunked))
	}
	for i, ev := range chunked {
		if ev.total != 2 {
			t.Errorf("event %d total = %d, want the fixed document count 2", i, ev.total)
		}
		if ev.completed != i+1 {
			t.Errorf("event %d completed = %d, want %d", i, ev.completed, i+1)
		}
	}
}

func TestRun_WritesCheckpoint(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"notes.txt": "short note"})
	checkpoint := filepath.Join(t.TempDir(), "processed.json")

	s := newService(&fakeEmbedder{}, &fakeIndex{}, checkpoint)
	if _, err := s.Run(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(checkpoint)
	if err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}
	var docs []struct {
		Title  string `json:"title"`
		Chunks []struct {
			ID string `json:"id"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("checkpoint is not valid JSON: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "notes" {
		t.Errorf("checkpoint content = %+v", docs)
	}
	if len(docs[0].Chunks) == 0 || docs[0].Chunks[0].ID != "notes-chunk-0" {
		t.Errorf("checkpoint chunks = %+v", docs[0].Chunks)
	}
}

func TestRun_VectorCountMismatchIsFatal(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"a.txt": strings.Repeat("x", 50)})

	idx := &fakeIndex{}
	s := newService(&fakeEmbedder{short: true}, idx, "")

	_, err := s.Run(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if len(idx.upserted) != 0 {
		t.Error("nothing should be upserted after a mismatch")
	}
}

func TestRun_ExtractionFailureAborts(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"bad.txt": "x"})

	s := New(Config{
		Extractor: failingExtractor{err: domain.ErrExtractionFailed},
		Embedder:  &fakeEmbedder{},
		Index:     &fakeIndex{},
		Chunker:   chunker.New(20, 5),
		Logger:    zap.NewNop(),
	})

	_, err := s.Run(context.Background(), dir)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestRun_EmbeddingFailureAborts(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"a.txt": "text"})

	idx := &fakeIndex{}
	s := newService(&fakeEmbedder{err: domain.ErrEmbeddingProviderError}, idx, "")

	_, err := s.Run(context.Background(), dir)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if len(idx.upserted) != 0 {
		t.Error("nothing should be upserted when embedding fails")
	}
}

func TestRun_EmptyDirIsNoop(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := &fakeIndex{}
	s := newService(emb, idx, "")

	sum, err := s.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Documents != 0 || sum.Chunks != 0 {
		t.Errorf("summary = %+v, want zero", sum)
	}
	if len(emb.calls) != 0 {
		t.Error("embedder should not be called for an empty corpus")
	}
}
