package main

import (
	"context"
	"fmt"
	"log"

	"github.com/fabfab/pdfqa/config"
	"github.com/fabfab/pdfqa/database"
	"github.com/fabfab/pdfqa/embeddings"
	"github.com/fabfab/pdfqa/index"
	"github.com/fabfab/pdfqa/ingestion"
	"github.com/fabfab/pdfqa/llm"
	"github.com/fabfab/pdfqa/pipeline"
)

// backend is the index store selected by INDEX_BACKEND together with its
// maintenance hooks.
type backend struct {
	name    string
	factory index.Factory
	purge   func(ctx context.Context) error
	close   func(ctx context.Context)
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.IndexBackend {
	case config.BackendMemory, "":
		return &backend{
			name:    config.BackendMemory,
			factory: index.MemoryFactory(),
			purge:   func(context.Context) error { return nil },
			close:   func(context.Context) {},
		}, nil

	case config.BackendPGVector:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		if err := database.EnsureRAGSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return &backend{
			name:    config.BackendPGVector,
			factory: index.PostgresFactory(pool),
			purge: func(ctx context.Context) error {
				return database.PurgeRAGData(ctx, pool)
			},
			close: func(context.Context) { pool.Close() },
		}, nil

	case config.BackendNeo4j:
		driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
		if err != nil {
			return nil, fmt.Errorf("neo4j connection: %w", err)
		}
		if err := database.EnsureGraphSchema(ctx, driver); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("neo4j schema: %w", err)
		}
		return &backend{
			name:    config.BackendNeo4j,
			factory: index.Neo4jFactory(driver),
			purge: func(ctx context.Context) error {
				return database.PurgeGraph(ctx, driver)
			},
			close: func(ctx context.Context) { _ = driver.Close(ctx) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.IndexBackend)
	}
}

// newCoordinator wires the providers named in cfg around the given index
// factory.
func newCoordinator(cfg config.Config, factory index.Factory, logger *log.Logger) (*pipeline.Coordinator, error) {
	chunker, err := ingestion.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("chunker setup: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("llm setup: %w", err)
	}

	return pipeline.NewCoordinator(
		ingestion.PDFExtractor,
		chunker,
		embedder,
		llmClient,
		factory,
		pipeline.WithLogger(logger),
		pipeline.WithTopK(cfg.RetrievalK),
		pipeline.WithGatewayTimeout(cfg.GatewayTimeout),
		pipeline.WithEmbedConcurrency(cfg.Embeddings.Concurrency),
	), nil
}
