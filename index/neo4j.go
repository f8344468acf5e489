package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fabfab/pdfqa/ingestion"
)

// Neo4j stores one document as a Document-HAS_PAGE-Page-HAS_CHUNK-Chunk
// subgraph. Every node carries the generation id so the whole subgraph can be
// dropped in one statement.
type Neo4j struct {
	driver     neo4j.DriverWithContext
	generation string

	mu        sync.RWMutex
	dimension int
	count     int
	populated bool
}

// Neo4jFactory returns a factory whose indexes share the given driver.
func Neo4jFactory(driver neo4j.DriverWithContext) Factory {
	return FactoryFunc(func(context.Context) (Index, error) {
		if driver == nil {
			return nil, fmt.Errorf("neo4j driver is nil")
		}
		return &Neo4j{driver: driver, generation: uuid.NewString()}, nil
	})
}

func (n *Neo4j) Generation() string {
	return n.generation
}

func (n *Neo4j) Populate(ctx context.Context, chunks []EmbeddedChunk) error {
	dim, err := validateVectors(chunks)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.populated {
		return ErrAlreadyPopulated
	}

	session := n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			CREATE (d:Document {id: $generation, generation: $generation, created_at: datetime()})
		`, map[string]any{"generation": n.generation}); err != nil {
			return nil, fmt.Errorf("create document node: %w", err)
		}

		for _, page := range distinctPages(chunks) {
			if _, err := tx.Run(ctx, `
				MATCH (d:Document {id: $generation})
				CREATE (p:Page {generation: $generation, number: $page})
				CREATE (d)-[:HAS_PAGE {order: $page}]->(p)
			`, map[string]any{
				"generation": n.generation,
				"page":       page,
			}); err != nil {
				return nil, fmt.Errorf("create page node: %w", err)
			}
		}

		for _, c := range chunks {
			if _, err := tx.Run(ctx, `
				MATCH (p:Page {generation: $generation, number: $page})
				CREATE (c:Chunk {
					id: $chunk_id,
					generation: $generation,
					sequence: $sequence,
					page: $page,
					offset: $offset,
					text: $text,
					embedding: $embedding
				})
				CREATE (p)-[:HAS_CHUNK {order: $sequence}]->(c)
			`, map[string]any{
				"generation": n.generation,
				"chunk_id":   uuid.NewString(),
				"sequence":   c.Chunk.Sequence,
				"page":       c.Chunk.Page,
				"offset":     c.Chunk.Offset,
				"text":       c.Chunk.Content,
				"embedding":  toFloat64(c.Vector),
			}); err != nil {
				return nil, fmt.Errorf("create chunk node: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	n.dimension = dim
	n.count = len(chunks)
	n.populated = true
	return nil
}

func (n *Neo4j) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, nil
	}

	n.mu.RLock()
	dim, count := n.dimension, n.count
	n.mu.RUnlock()
	if count == 0 {
		return nil, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, dim, len(vector))
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, `
		MATCH (c:Chunk {generation: $generation})
		WITH c, vector.similarity.cosine(c.embedding, $embedding) AS score
		RETURN c.sequence AS sequence, c.page AS page, c.offset AS offset, c.text AS text, score
		ORDER BY score DESC, sequence ASC
		LIMIT $k
	`, map[string]any{
		"generation": n.generation,
		"embedding":  toFloat64(vector),
		"k":          k,
	}, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}

	hits := make([]Hit, 0, len(result.Records))
	for _, record := range result.Records {
		hit, err := hitFromRecord(record)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (n *Neo4j) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.count
}

// Close drops this generation's subgraph.
func (n *Neo4j) Close(ctx context.Context) error {
	_, err := neo4j.ExecuteQuery(ctx, n.driver, `
		MATCH (x {generation: $generation})
		DETACH DELETE x
	`, map[string]any{"generation": n.generation}, neo4j.EagerResultTransformer)
	if err != nil {
		return fmt.Errorf("delete generation %s: %w", n.generation, err)
	}

	n.mu.Lock()
	n.count = 0
	n.mu.Unlock()
	return nil
}

func hitFromRecord(record *neo4j.Record) (Hit, error) {
	sequence, _, err := neo4j.GetRecordValue[int64](record, "sequence")
	if err != nil {
		return Hit{}, fmt.Errorf("read sequence: %w", err)
	}
	page, _, err := neo4j.GetRecordValue[int64](record, "page")
	if err != nil {
		return Hit{}, fmt.Errorf("read page: %w", err)
	}
	offset, _, err := neo4j.GetRecordValue[int64](record, "offset")
	if err != nil {
		return Hit{}, fmt.Errorf("read offset: %w", err)
	}
	text, _, err := neo4j.GetRecordValue[string](record, "text")
	if err != nil {
		return Hit{}, fmt.Errorf("read text: %w", err)
	}
	score, _, err := neo4j.GetRecordValue[float64](record, "score")
	if err != nil {
		return Hit{}, fmt.Errorf("read score: %w", err)
	}

	return Hit{
		Chunk: ingestion.Chunk{
			Content:  text,
			Page:     int(page),
			Sequence: int(sequence),
			Offset:   int(offset),
		},
		Score: score,
	}, nil
}

func distinctPages(chunks []EmbeddedChunk) []int {
	seen := make(map[int]struct{})
	pages := make([]int, 0)
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.Page]; ok {
			continue
		}
		seen[c.Chunk.Page] = struct{}{}
		pages = append(pages, c.Chunk.Page)
	}
	sort.Ints(pages)
	return pages
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

var _ Index = (*Neo4j)(nil)
