// Package chunker splits normalized text into overlapping fixed-size
// pieces for embedding. Sizes are in runes so multi-byte characters never
// get cut in half.
package chunker

import (
	"fmt"

	"github.com/aliment-labs/nutriqa/internal/domain"
)

// Chunker holds the window parameters. Overlap must be smaller than Size;
// config validation enforces that before a Chunker is ever built.
type Chunker struct {
	Size    int
	Overlap int
}

// New creates a chunker with the given window size and overlap.
func New(size, overlap int) *Chunker {
	return &Chunker{Size: size, Overlap: overlap}
}

// Split slides a window of Size runes over the text, advancing by
// Size-Overlap each step. Consecutive chunks share Overlap runes, so a
// sentence straddling a boundary is fully present in at least one chunk.
// Empty input yields no chunks; the final chunk may be shorter than Size.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.Size - c.Overlap
	parts := make([]string, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := min(start+c.Size, len(runes))
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// Wrap pairs each piece with its stable identity. Chunk ids are
// deterministic per document, so re-ingesting a book overwrites its old
// chunks instead of duplicating them.
func Wrap(title, source string, parts []string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(parts))
	for i, text := range parts {
		chunks[i] = domain.Chunk{
			ID:     fmt.Sprintf("%s-chunk-%d", title, i),
			Text:   text,
			Source: source,
			Index:  i,
		}
	}
	return chunks
}
