package llm

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	provider    string
}

func NewOpenAIClient(opts Options) Client {
	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}

	return &openAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		provider:    "openai",
	}
}

// NewAzureClient talks to an Azure OpenAI chat deployment named by opts.Model.
func NewAzureClient(opts Options) Client {
	cfg := openai.DefaultAzureConfig(opts.AzureAPIKey, opts.AzureEndpoint)
	if opts.AzureAPIVersion != "" {
		cfg.APIVersion = opts.AzureAPIVersion
	}
	deployment := opts.Model
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &openAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		provider:    "azure openai",
	}
}

func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	// go-openai omits a zero temperature, so zero goes out as the smallest positive float.
	temperature := c.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create %s chat completion: %w", c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion returned no choices", c.provider)
	}

	return resp.Choices[0].Message.Content, nil
}
