package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Postgres keeps one document's chunks in the rag_chunks table, tagged with a
// generation id so an older document can be dropped once a newer one is live.
type Postgres struct {
	pool       *pgxpool.Pool
	generation uuid.UUID

	mu        sync.RWMutex
	dimension int
	count     int
	populated bool
}

// PostgresFactory returns a factory whose indexes share the given pool.
func PostgresFactory(pool *pgxpool.Pool) Factory {
	return FactoryFunc(func(context.Context) (Index, error) {
		if pool == nil {
			return nil, fmt.Errorf("postgres pool is nil")
		}
		return &Postgres{pool: pool, generation: uuid.New()}, nil
	})
}

func (p *Postgres) Generation() uuid.UUID {
	return p.generation
}

func (p *Postgres) Populate(ctx context.Context, chunks []EmbeddedChunk) error {
	dim, err := validateVectors(chunks)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.populated {
		return ErrAlreadyPopulated
	}
	if len(chunks) == 0 {
		p.populated = true
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO rag_chunks (id, generation, sequence, page, char_offset, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New(), p.generation, c.Chunk.Sequence, c.Chunk.Page, c.Chunk.Offset, c.Chunk.Content, pgvector.NewVector(c.Vector))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}

	p.dimension = dim
	p.count = len(chunks)
	p.populated = true
	return nil
}

func (p *Postgres) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	p.mu.RLock()
	dim, count := p.dimension, p.count
	p.mu.RUnlock()
	if count == 0 {
		return nil, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, dim, len(vector))
	}

	rows, err := p.pool.Query(ctx, `
        SELECT sequence, page, char_offset, content, (embedding <=> $1::vector) AS distance
        FROM rag_chunks
        WHERE generation = $2
        ORDER BY embedding <=> $1::vector, sequence
        LIMIT $3
    `, pgvector.NewVector(vector), p.generation, k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var hit Hit
		var distance float64
		if err := rows.Scan(&hit.Chunk.Sequence, &hit.Chunk.Page, &hit.Chunk.Offset, &hit.Chunk.Content, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		hit.Score = 1 - distance
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

func (p *Postgres) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

// Close deletes this generation's rows.
func (p *Postgres) Close(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM rag_chunks WHERE generation = $1", p.generation); err != nil {
		return fmt.Errorf("delete generation %s: %w", p.generation, err)
	}

	p.mu.Lock()
	p.count = 0
	p.mu.Unlock()
	return nil
}

var _ Index = (*Postgres)(nil)
