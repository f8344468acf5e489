package llm

import (
	"context"
	"fmt"

	"github.com/fabfab/pdfqa/config"
)

// Client turns a fully assembled prompt into answer text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Provider    string
	Model       string
	Temperature float32

	AzureEndpoint   string
	AzureAPIKey     string
	AzureAPIVersion string
	OllamaHost      string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		AzureEndpoint:   cfg.Azure.Endpoint,
		AzureAPIKey:     cfg.Azure.APIKey,
		AzureAPIVersion: cfg.Azure.APIVersion,
		OllamaHost:      cfg.OllamaHost,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts)
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	case config.ProviderAzure:
		if opts.AzureAPIKey == "" || opts.AzureEndpoint == "" {
			return nil, fmt.Errorf("azure provider selected but AZ_OPENAI_ENDPOINT or AZ_OPENAI_API_KEY not set")
		}
		return NewAzureClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
