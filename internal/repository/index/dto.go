package index

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/aliment-labs/nutriqa/internal/db"
	"github.com/aliment-labs/nutriqa/internal/domain"
)

// buildHashFields flattens an IndexedVector into HSET fields. The vector
// is stored as raw float32 little-endian bytes, the form FT.SEARCH expects.
func buildHashFields(rec *domain.IndexedVector) map[string]string {
	return map[string]string{
		"text":        rec.Text,
		"source":      rec.Source,
		"chunk_index": strconv.Itoa(rec.ChunkIndex),
		"vector":      vectorToBytes(rec.Values),
	}
}

// parseMatch converts a search hit back into a domain match.
func parseMatch(entry db.SearchEntry) domain.Match {
	idx, _ := strconv.Atoi(entry.Fields["chunk_index"])
	return domain.Match{
		Text:       entry.Fields["text"],
		Source:     entry.Fields["source"],
		ChunkIndex: idx,
		Score:      entry.Score,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
