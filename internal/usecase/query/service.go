// Package query implements the online read path: embed a question,
// retrieve the closest chunks, and synthesize a grounded answer with
// source citations.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

const (
	systemPrompt = "You are a nutrition expert assistant. Use only the information provided in " +
		"the context to answer the question. If the answer cannot be found in the context, say " +
		"'I don't have enough information in my textbooks to answer this question accurately.' " +
		"Be concise and accurate."

	noMatchAnswer = "I'm sorry, I couldn't find any relevant information for your question in my nutrition textbooks."

	defaultTemperature     = 0.3
	defaultMaxOutputTokens = 500
	defaultTopK            = 5
)

// Options tune retrieval and synthesis. Zero values fall back to the
// defaults above.
type Options struct {
	TopK        int
	Temperature float32
	MaxTokens   int
}

// Service runs retrieval and answer synthesis.
type Service struct {
	embedder  Embedder
	index     Index
	generator Generator
	opts      Options
	logger    *zap.Logger
}

// New creates the query service.
func New(embedder Embedder, index Index, generator Generator, opts Options, logger *zap.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxOutputTokens
	}
	return &Service{
		embedder:  embedder,
		index:     index,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Retrieve embeds the query and returns the topK closest chunks in rank
// order. Zero matches is a valid result, not an error.
func (s *Service) Retrieve(ctx context.Context, query string) ([]domain.Match, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.index.Query(ctx, vector, s.opts.TopK)
}

// Answer retrieves context for the question and synthesizes a grounded
// answer. When nothing relevant is indexed, a fixed apology is returned
// and the generator is never consulted.
func (s *Service) Answer(ctx context.Context, query string) (domain.Answer, error) {
	matches, err := s.Retrieve(ctx, query)
	if err != nil {
		return domain.Answer{}, err
	}

	if len(matches) == 0 {
		s.logger.Info("no relevant chunks for query")
		return domain.Answer{
			Text:    noMatchAnswer,
			Sources: []domain.SourceRef{},
		}, nil
	}

	texts := make([]string, len(matches))
	sources := make([]domain.SourceRef, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
		sources[i] = m.Ref()
	}

	userPrompt := fmt.Sprintf(
		"Context information from nutrition textbooks:\n\n%s\n\nQuestion: %s\n\nAnswer:",
		strings.Join(texts, "\n\n"), query)

	text, err := s.generator.Generate(ctx, systemPrompt, userPrompt, s.opts.Temperature, s.opts.MaxTokens)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Debug("answer synthesized",
		zap.Int("matches", len(matches)),
		zap.Int("answerLength", len(text)))

	return domain.Answer{Text: text, Sources: sources}, nil
}
