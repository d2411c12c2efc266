package domain

// Match is one retrieved chunk with its similarity score.
// Score is cosine similarity, higher is better; it is used for ranking
// and surfaced to callers for transparency only.
type Match struct {
	Text       string
	Source     string
	ChunkIndex int
	Score      float64
}

// SourceRef is the citation projection of a Match.
type SourceRef struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
}

// Answer is a generated answer together with its citations.
// Sources preserve retrieval rank order; they are never re-sorted.
type Answer struct {
	Text    string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
}

// Ref projects a match to its citation form.
func (m Match) Ref() SourceRef {
	return SourceRef{Source: m.Source, ChunkIndex: m.ChunkIndex, Score: m.Score}
}
