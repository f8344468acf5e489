package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force cosine similarity index held in process memory.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	chunks    []EmbeddedChunk
	norms     []float64
	populated bool
}

func NewMemory() *Memory {
	return &Memory{}
}

// MemoryFactory creates a fresh Memory index per document.
func MemoryFactory() Factory {
	return FactoryFunc(func(context.Context) (Index, error) {
		return NewMemory(), nil
	})
}

func (m *Memory) Populate(_ context.Context, chunks []EmbeddedChunk) error {
	dim, err := validateVectors(chunks)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.populated {
		return ErrAlreadyPopulated
	}

	m.dimension = dim
	m.chunks = append([]EmbeddedChunk(nil), chunks...)
	m.norms = make([]float64, len(chunks))
	for i := range chunks {
		m.norms[i] = norm(chunks[i].Vector)
	}
	m.populated = true
	return nil
}

func (m *Memory) Search(_ context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.chunks) == 0 {
		return nil, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, m.dimension, len(vector))
	}

	queryNorm := norm(vector)
	hits := make([]Hit, len(m.chunks))
	for i := range m.chunks {
		hits[i] = Hit{
			Chunk: m.chunks[i].Chunk,
			Score: cosine(vector, m.chunks[i].Vector, queryNorm, m.norms[i]),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Sequence < hits[j].Chunk.Sequence
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *Memory) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.norms = nil
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

var _ Index = (*Memory)(nil)
