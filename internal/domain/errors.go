package domain

import "errors"

var (
	// ErrExtractionFailed signals that every extraction strategy was exhausted.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrUnsupportedFormat signals a document format the pipeline cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index creation, upsert, or query failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrSynthesisFailed signals an answer generation failure.
	ErrSynthesisFailed = errors.New("answer synthesis failed")
)
