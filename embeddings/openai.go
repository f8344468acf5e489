package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	provider  string
}

func NewOpenAIEmbedder(opts Options) Embedder {
	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}

	return &openAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		dimension: opts.Dimension,
		provider:  "openai",
	}
}

// NewAzureEmbedder talks to an Azure OpenAI resource. The model name is used
// as the deployment name.
func NewAzureEmbedder(opts Options) Embedder {
	cfg := openai.DefaultAzureConfig(opts.AzureAPIKey, opts.AzureEndpoint)
	if opts.AzureAPIVersion != "" {
		cfg.APIVersion = opts.AzureAPIVersion
	}
	deployment := opts.Model
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &openAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		dimension: opts.Dimension,
		provider:  "azure openai",
	}
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s embeddings: %w", e.provider, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s returned no embeddings", e.provider)
	}

	vec := resp.Data[0].Embedding
	if err := checkDimension(e.provider, e.dimension, vec); err != nil {
		return nil, err
	}
	return vec, nil
}
