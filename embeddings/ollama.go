package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

type ollamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int
}

func NewOllamaEmbedder(opts Options) (Embedder, error) {
	host := strings.TrimRight(opts.OllamaHost, "/")
	if host == "" {
		host = "http://localhost:11434"
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	return &ollamaEmbedder{
		client:    api.NewClient(base, &http.Client{Timeout: 30 * time.Second}),
		model:     opts.Model,
		dimension: opts.Dimension,
	}, nil
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("call ollama embed API: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}

	vec := resp.Embeddings[0]
	if err := checkDimension("ollama", e.dimension, vec); err != nil {
		return nil, err
	}
	return vec, nil
}
