package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// EnsureRAGSchema creates the chunk table used by the pgvector index. The
// embedding column is left without a fixed dimension; each generation keeps
// its own vectors consistent.
func EnsureRAGSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS rag_chunks (
			id UUID PRIMARY KEY,
			generation UUID NOT NULL,
			sequence INT NOT NULL,
			page INT NOT NULL,
			char_offset INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(generation, sequence)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_rag_chunks_generation ON rag_chunks(generation)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}

// EnsureGraphSchema creates the uniqueness constraint on chunk nodes.
func EnsureGraphSchema(ctx context.Context, driver neo4j.DriverWithContext) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		"CREATE CONSTRAINT rag_chunk_id IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
		"CREATE INDEX rag_chunk_generation IF NOT EXISTS FOR (c:Chunk) ON (c.generation)",
	}
	for _, query := range queries {
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("run schema query: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("consume schema query: %w", err)
		}
	}
	return nil
}

// PurgeRAGData removes every stored chunk from Postgres.
func PurgeRAGData(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := pool.Exec(ctx, "TRUNCATE rag_chunks"); err != nil {
		return fmt.Errorf("truncate rag_chunks: %w", err)
	}
	return nil
}

// PurgeGraph removes document, page and chunk nodes from Neo4j.
func PurgeGraph(ctx context.Context, driver neo4j.DriverWithContext) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		"MATCH (d:Document) DETACH DELETE d",
		"MATCH (p:Page) DETACH DELETE p",
		"MATCH (c:Chunk) DETACH DELETE c",
	}

	for _, query := range queries {
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return err
		}
		if _, err := result.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}
