package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

type ollamaClient struct {
	client      *api.Client
	model       string
	temperature float32
}

func NewOllamaClient(opts Options) (Client, error) {
	host := strings.TrimRight(opts.OllamaHost, "/")
	if host == "" {
		host = "http://localhost:11434"
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	return &ollamaClient{
		client:      api.NewClient(base, &http.Client{Timeout: 120 * time.Second}),
		model:       opts.Model,
		temperature: opts.Temperature,
	}, nil
}

func (c *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: map[string]any{"temperature": c.temperature},
	}

	var sb strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("call ollama generate API: %w", err)
	}

	return sb.String(), nil
}
