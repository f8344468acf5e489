// Package pipeline owns the loaded document and runs the ingest and answer
// workflows against the extraction, embedding, index and generation layers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fabfab/pdfqa/embeddings"
	"github.com/fabfab/pdfqa/index"
	"github.com/fabfab/pdfqa/ingestion"
	"github.com/fabfab/pdfqa/llm"
)

const (
	DefaultTopK             = 3
	DefaultGatewayTimeout   = 60 * time.Second
	DefaultEmbedConcurrency = 4

	indexCleanupTimeout = 30 * time.Second
)

type Option func(*Coordinator)

func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTopK(k int) Option {
	return func(c *Coordinator) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithGatewayTimeout bounds each embedding and generation call. Zero disables
// the per-call deadline.
func WithGatewayTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.gatewayTimeout = d
		}
	}
}

func WithEmbedConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.embedConcurrency = n
		}
	}
}

// Coordinator holds the single active document. Ingests are serialised and
// swap the corpus in one step, so concurrent answers see either the old or
// the new document, never a mix.
type Coordinator struct {
	extractor ingestion.Extractor
	chunker   *ingestion.Chunker
	embedder  embeddings.Embedder
	llm       llm.Client
	indexes   index.Factory
	logger    *log.Logger

	topK             int
	gatewayTimeout   time.Duration
	embedConcurrency int

	ingestMu sync.Mutex

	mu      sync.RWMutex
	state   State
	current index.Index
}

func NewCoordinator(
	extractor ingestion.Extractor,
	chunker *ingestion.Chunker,
	embedder embeddings.Embedder,
	llmClient llm.Client,
	indexes index.Factory,
	opts ...Option,
) *Coordinator {
	if chunker == nil {
		chunker = ingestion.DefaultChunker()
	}
	if indexes == nil {
		indexes = index.MemoryFactory()
	}

	c := &Coordinator{
		extractor:        extractor,
		chunker:          chunker,
		embedder:         embedder,
		llm:              llmClient,
		indexes:          indexes,
		logger:           log.Default(),
		topK:             DefaultTopK,
		gatewayTimeout:   DefaultGatewayTimeout,
		embedConcurrency: DefaultEmbedConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current corpus.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ingest replaces the active document with src. On any failure the previous
// document stays active.
func (c *Coordinator) Ingest(ctx context.Context, src ingestion.Source) (IngestResult, error) {
	if ingestion.DetectFormat(src.Name) != ingestion.FormatPDF {
		return IngestResult{}, fmt.Errorf("%w: %q is not a PDF", ErrWrongFileType, src.Name)
	}
	if c.extractor == nil || c.embedder == nil {
		return IngestResult{}, fmt.Errorf("%w: extractor and embedder must be configured", ErrInvalidConfiguration)
	}

	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	started := time.Now()

	units, err := c.extractor.Extract(src)
	if err != nil {
		if !errors.Is(err, ErrUnreadableDocument) {
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
		}
		return IngestResult{}, err
	}

	chunks := c.chunker.Chunk(units)
	if len(chunks) == 0 {
		return IngestResult{}, fmt.Errorf("%w: %s contains no extractable text", ErrUnreadableDocument, src.Name)
	}

	embedded, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return IngestResult{}, err
	}

	idx, err := c.indexes.New(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: create index: %v", ErrIndexFailure, err)
	}
	if err := idx.Populate(ctx, embedded); err != nil {
		c.closeIndex(ctx, idx, "unused")
		return IngestResult{}, fmt.Errorf("%w: populate index: %v", ErrIndexFailure, err)
	}

	next := State{
		Ready:      true,
		Filename:   src.Name,
		ChunkCount: len(chunks),
		PageCount:  len(units),
		Generation: uuid.NewString(),
		LoadedAt:   time.Now().UTC(),
	}

	c.mu.Lock()
	previous := c.current
	c.current = idx
	c.state = next
	c.mu.Unlock()

	if previous != nil {
		c.closeIndex(ctx, previous, "replaced")
	}

	c.logger.Printf("ingested %s: %d chunks from %d pages in %s", src.Name, next.ChunkCount, next.PageCount, time.Since(started).Round(time.Millisecond))
	return IngestResult{ChunkCount: next.ChunkCount, PageCount: next.PageCount}, nil
}

// Answer retrieves the closest chunks for question and asks the model to
// answer from them.
func (c *Coordinator) Answer(ctx context.Context, question string) (Answer, error) {
	if !c.State().Ready {
		return Answer{}, ErrNoCorpusLoaded
	}
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if c.llm == nil {
		return Answer{}, fmt.Errorf("%w: llm client is not configured", ErrInvalidConfiguration)
	}

	vector, err := c.embed(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := c.search(ctx, vector)
	if err != nil {
		return Answer{}, err
	}

	c.logger.Printf("retrieved %s for question", describeHits(hits))

	prompt := BuildPrompt(hits, question)
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return Answer{}, err
	}

	return Answer{Text: text, Sources: hits}, nil
}

// Close releases the active index and returns to the empty state.
func (c *Coordinator) Close(ctx context.Context) error {
	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	c.mu.Lock()
	current := c.current
	c.current = nil
	c.state = State{}
	c.mu.Unlock()

	if current == nil {
		return nil
	}
	return current.Close(ctx)
}

// closeIndex releases idx even when the caller's context is already done.
func (c *Coordinator) closeIndex(ctx context.Context, idx index.Index, role string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexCleanupTimeout)
	defer cancel()

	if err := idx.Close(ctx); err != nil {
		c.logger.Printf("close %s index: %v", role, err)
	}
}

func (c *Coordinator) search(ctx context.Context, vector []float32) ([]index.Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return nil, ErrNoCorpusLoaded
	}
	hits, err := c.current.Search(ctx, vector, c.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrIndexFailure, err)
	}
	return hits, nil
}

func (c *Coordinator) embedChunks(ctx context.Context, chunks []ingestion.Chunk) ([]index.EmbeddedChunk, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.embedConcurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := c.embed(gctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", chunks[i].Sequence, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	embedded := make([]index.EmbeddedChunk, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, expected %d", ErrEmbeddingFailure, chunks[i].Sequence, len(vectors[i]), len(vectors[0]))
		}
		embedded[i] = index.EmbeddedChunk{Chunk: chunks[i], Vector: vectors[i]}
	}
	return embedded, nil
}

func (c *Coordinator) embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	vec, err := c.embedder.Embed(callCtx, text)
	if err != nil {
		return nil, gatewayError(ctx, callCtx, ErrEmbeddingFailure, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingFailure)
	}
	return vec, nil
}

func (c *Coordinator) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	text, err := c.llm.Generate(callCtx, prompt)
	if err != nil {
		return "", gatewayError(ctx, callCtx, ErrGenerationFailure, err)
	}
	return text, nil
}

func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.gatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.gatewayTimeout)
}

// gatewayError tags err with kind, and with ErrGatewayTimeout when the
// per-call deadline fired rather than the caller's own context.
func gatewayError(parent, call context.Context, kind, err error) error {
	if errors.Is(call.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: %w: %v", kind, ErrGatewayTimeout, err)
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func describeHits(hits []index.Hit) string {
	if len(hits) == 0 {
		return "no chunks"
	}
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("p%d:%.3f", hit.Chunk.Page, hit.Score)
	}
	return fmt.Sprintf("%d chunks [%s]", len(hits), strings.Join(parts, " "))
}
