// Package index stores embedded chunks for a single document and answers
// nearest-neighbour queries against them.
package index

import (
	"context"
	"errors"

	"github.com/fabfab/pdfqa/ingestion"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyVector       = errors.New("vector is empty")
	ErrAlreadyPopulated  = errors.New("index already populated")
)

// EmbeddedChunk pairs a chunk with its embedding.
type EmbeddedChunk struct {
	Chunk  ingestion.Chunk
	Vector []float32
}

// Hit is one ranked search result. Higher scores are more similar.
type Hit struct {
	Chunk ingestion.Chunk
	Score float64
}

// Index is populated once and then only searched. Search returns at most k
// hits ordered from most to least similar.
type Index interface {
	Populate(ctx context.Context, chunks []EmbeddedChunk) error
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len() int
	Close(ctx context.Context) error
}

// Factory creates empty indexes, one per ingested document.
type Factory interface {
	New(ctx context.Context) (Index, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Index, error)

func (f FactoryFunc) New(ctx context.Context) (Index, error) {
	return f(ctx)
}

func validateVectors(chunks []EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	dim := len(chunks[0].Vector)
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return 0, ErrEmptyVector
		}
		if len(c.Vector) != dim {
			return 0, ErrDimensionMismatch
		}
	}
	return dim, nil
}
