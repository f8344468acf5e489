package embeddings

import (
	"context"
	"fmt"

	"github.com/fabfab/pdfqa/config"
)

// Embedder maps one text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	AzureEndpoint   string
	AzureAPIKey     string
	AzureAPIVersion string
	OllamaHost      string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:        cfg.Embeddings.Provider,
		Model:           cfg.Embeddings.Model,
		Dimension:       cfg.Embeddings.Dimension,
		AzureEndpoint:   cfg.Azure.Endpoint,
		AzureAPIKey:     cfg.Azure.APIKey,
		AzureAPIVersion: cfg.Azure.APIVersion,
		OllamaHost:      cfg.OllamaHost,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
	}

	var (
		embedder Embedder
		err      error
	)
	switch opts.Provider {
	case config.ProviderOllama:
		embedder, err = NewOllamaEmbedder(opts)
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		embedder = NewOpenAIEmbedder(opts)
	case config.ProviderAzure:
		if opts.AzureAPIKey == "" || opts.AzureEndpoint == "" {
			return nil, fmt.Errorf("azure provider selected but AZ_OPENAI_ENDPOINT or AZ_OPENAI_API_KEY not set")
		}
		embedder = NewAzureEmbedder(opts)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Embeddings.RateLimit > 0 {
		embedder = NewRateLimited(embedder, cfg.Embeddings.RateLimit, 1)
	}
	return embedder, nil
}

func checkDimension(provider string, want int, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%s returned an empty embedding", provider)
	}
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%s embedding dimension mismatch: expected %d, got %d", provider, want, len(vec))
	}
	return nil
}
