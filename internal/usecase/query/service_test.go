package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// --- Mocks ---

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

type fakeIndex struct {
	matches  []domain.Match
	err      error
	lastTopK int
}

func (x *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]domain.Match, error) {
	x.lastTopK = topK
	return x.matches, x.err
}

type fakeGenerator struct {
	answer        string
	err           error
	calls         int
	lastSystem    string
	lastUser      string
	lastTemp      float32
	lastMaxTokens int
}

func (g *fakeGenerator) Generate(_ context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	g.calls++
	g.lastSystem = system
	g.lastUser = user
	g.lastTemp = temperature
	g.lastMaxTokens = maxTokens
	return g.answer, g.err
}

func matchFixture() []domain.Match {
	return []domain.Match{
		{Text: "Fiber slows digestion.", Source: "gi-physiology.pdf", ChunkIndex: 12, Score: 0.93},
		{Text: "Soluble fiber binds water.", Source: "macronutrients.pdf", ChunkIndex: 3, Score: 0.88},
	}
}

// --- Tests ---

func TestRetrieve_PassesTopK(t *testing.T) {
	idx := &fakeIndex{matches: matchFixture()}
	s := New(&fakeEmbedder{vec: []float32{0.1}}, idx, &fakeGenerator{}, Options{TopK: 7}, zap.NewNop())

	matches, err := s.Retrieve(context.Background(), "what does fiber do")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastTopK != 7 {
		t.Errorf("topK = %d, want 7", idx.lastTopK)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches", len(matches))
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	idx := &fakeIndex{}
	s := New(&fakeEmbedder{vec: []float32{0.1}}, idx, &fakeGenerator{}, Options{}, zap.NewNop())

	if _, err := s.Retrieve(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastTopK != 5 {
		t.Errorf("topK = %d, want default 5", idx.lastTopK)
	}
}

func TestAnswer_NoMatchesSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be used"}
	s := New(&fakeEmbedder{vec: []float32{0.1}}, &fakeIndex{matches: []domain.Match{}}, gen, Options{TopK: 5}, zap.NewNop())

	ans, err := s.Answer(context.Background(), "what is ergocalciferol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != noMatchAnswer {
		t.Errorf("answer = %q", ans.Text)
	}
	if ans.Sources == nil || len(ans.Sources) != 0 {
		t.Errorf("sources = %v, want empty non-nil", ans.Sources)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called when nothing matched")
	}
}

func TestAnswer_GroundedSynthesis(t *testing.T) {
	gen := &fakeGenerator{answer: "Fiber slows digestion and binds water."}
	s := New(&fakeEmbedder{vec: []float32{0.1}}, &fakeIndex{matches: matchFixture()}, gen, Options{TopK: 5}, zap.NewNop())

	ans, err := s.Answer(context.Background(), "what does fiber do")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ans.Text != gen.answer {
		t.Errorf("answer not returned verbatim: %q", ans.Text)
	}

	// Sources projected in rank order with scores.
	if len(ans.Sources) != 2 {
		t.Fatalf("got %d sources", len(ans.Sources))
	}
	if ans.Sources[0].Source != "gi-physiology.pdf" || ans.Sources[0].ChunkIndex != 12 || ans.Sources[0].Score != 0.93 {
		t.Errorf("first source = %+v", ans.Sources[0])
	}

	// Context joins match texts in rank order with blank lines.
	wantCtx := "Fiber slows digestion.\n\nSoluble fiber binds water."
	if !strings.Contains(gen.lastUser, wantCtx) {
		t.Errorf("user prompt missing joined context:\n%s", gen.lastUser)
	}
	if !strings.HasPrefix(gen.lastUser, "Context information from nutrition textbooks:\n\n") {
		t.Errorf("user prompt prefix wrong:\n%s", gen.lastUser)
	}
	if !strings.HasSuffix(gen.lastUser, "Question: what does fiber do\n\nAnswer:") {
		t.Errorf("user prompt suffix wrong:\n%s", gen.lastUser)
	}
	if !strings.Contains(gen.lastSystem, "I don't have enough information in my textbooks") {
		t.Errorf("system prompt missing insufficiency phrase:\n%s", gen.lastSystem)
	}
}

func TestAnswer_DefaultGenerationParameters(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	s := New(&fakeEmbedder{vec: []float32{0.1}}, &fakeIndex{matches: matchFixture()}, gen, Options{}, zap.NewNop())

	if _, err := s.Answer(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.lastTemp != 0.3 {
		t.Errorf("temperature = %f, want 0.3", gen.lastTemp)
	}
	if gen.lastMaxTokens != 500 {
		t.Errorf("maxTokens = %d, want 500", gen.lastMaxTokens)
	}
}

func TestAnswer_EmbedderFailure(t *testing.T) {
	gen := &fakeGenerator{}
	s := New(&fakeEmbedder{err: domain.ErrEmbeddingProviderError}, &fakeIndex{}, gen, Options{TopK: 5}, zap.NewNop())

	_, err := s.Answer(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not run after an embedding failure")
	}
}

func TestAnswer_IndexFailure(t *testing.T) {
	s := New(&fakeEmbedder{vec: []float32{0.1}}, &fakeIndex{err: domain.ErrIndexUnavailable}, &fakeGenerator{}, Options{TopK: 5}, zap.NewNop())

	_, err := s.Answer(context.Background(), "q")
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestAnswer_GeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: domain.ErrSynthesisFailed}
	s := New(&fakeEmbedder{vec: []float32{0.1}}, &fakeIndex{matches: matchFixture()}, gen, Options{TopK: 5}, zap.NewNop())

	_, err := s.Answer(context.Background(), "q")
	if !errors.Is(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}
