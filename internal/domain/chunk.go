package domain

// Chunk is a bounded substring of a document's normalized text, the unit
// of embedding and retrieval. Immutable once created.
type Chunk struct {
	ID     string `json:"id"` // <documentTitle>-chunk-<index>, deterministic
	Text   string `json:"text"`
	Source string `json:"source"`
	Index  int    `json:"chunkIndex"`
}

// IndexedVector is one chunk paired with its embedding, ready for upload.
// The vector index owns the record after upsert.
type IndexedVector struct {
	ID         string
	Values     []float32
	Text       string
	Source     string
	ChunkIndex int
}
