package redis

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"github.com/aliment-labs/nutriqa/internal/db"
)

func TestBuildCreateArgs(t *testing.T) {
	def := &db.IndexDefinition{
		Name:     "nutrition-textbooks",
		Prefixes: []string{"nutriqa:chunk:"},
		Fields: []db.IndexField{
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorDim:         768,
				VectorDistance:    db.DistanceCosine,
				VectorM:           16,
				VectorEFConstruct: 200,
			},
		},
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("buildCreateArgs: %v", err)
	}

	want := []string{
		"nutrition-textbooks", "ON", "HASH",
		"PREFIX", "1", "nutriqa:chunk:",
		"SCHEMA",
		"source", "TAG",
		"chunk_index", "NUMERIC",
		"vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", "768",
		"DISTANCE_METRIC", "COSINE",
		"M", "16",
		"EF_CONSTRUCTION", "200",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args mismatch:\ngot:  %v\nwant: %v", args, want)
	}
}

func TestBuildCreateArgs_Invalid(t *testing.T) {
	cases := []struct {
		name string
		def  *db.IndexDefinition
	}{
		{"empty name", &db.IndexDefinition{Fields: []db.IndexField{{Name: "vector", Type: db.IndexFieldVector, VectorDim: 8}}}},
		{"no fields", &db.IndexDefinition{Name: "idx"}},
		{"vector without dim", &db.IndexDefinition{
			Name:   "idx",
			Fields: []db.IndexField{{Name: "vector", Type: db.IndexFieldVector}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := buildCreateArgs(tc.def); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	got := vectorToBytes(v)

	if len(got) != len(v)*4 {
		t.Fatalf("length = %d, want %d", len(got), len(v)*4)
	}
	for i, f := range v {
		bits := binary.LittleEndian.Uint32([]byte(got)[i*4:])
		if math.Float32frombits(bits) != f {
			t.Errorf("element %d round-trip mismatch", i)
		}
	}
}
