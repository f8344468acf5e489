package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/pdfqa/config"
)

func TestNewClientProviders(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name: "ollama",
			mutate: func(c *config.Config) {
				c.LLM.Provider = config.ProviderOllama
				c.LLM.Model = "llama3.1:8b"
			},
		},
		{
			name: "openai requires key",
			mutate: func(c *config.Config) {
				c.LLM.Provider = config.ProviderOpenAI
			},
			wantErr: true,
		},
		{
			name: "azure",
			mutate: func(c *config.Config) {
				c.Azure.Endpoint = "https://example.openai.azure.com"
				c.Azure.APIKey = "key"
			},
		},
		{
			name:    "azure requires credentials",
			mutate:  func(c *config.Config) {},
			wantErr: true,
		},
		{
			name: "unknown",
			mutate: func(c *config.Config) {
				c.LLM.Provider = "bard"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			client, err := NewClient(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestOpenAIClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Less(t, body.Temperature, 0.001)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, "user", body.Messages[0].Role)
			assert.Equal(t, "the prompt", body.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  raw answer  "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(Options{Model: "gpt-4o-mini", OpenAIAPIKey: "sk", OpenAIBaseURL: server.URL + "/v1"})
	answer, err := client.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "  raw answer  ", answer, "answer text is returned unmodified")
}

func TestOpenAIClientNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(Options{Model: "m", OpenAIAPIKey: "sk", OpenAIBaseURL: server.URL + "/v1"})
	_, err := client.Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestAzureClientUsesDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/openai/deployments/gpt-35-turbo/chat/completions"), r.URL.Path)
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"azure says hi"}}]}`))
	}))
	defer server.Close()

	client := NewAzureClient(Options{
		Model:           "gpt-35-turbo",
		AzureEndpoint:   server.URL,
		AzureAPIKey:     "azure-key",
		AzureAPIVersion: "2023-05-15",
	})
	answer, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "azure says hi", answer)
}

func TestOllamaClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body["model"])
		assert.Equal(t, "the prompt", body["prompt"])
		assert.Equal(t, false, body["stream"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"local answer","done":true}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Options{Model: "llama3", OllamaHost: server.URL})
	require.NoError(t, err)

	answer, err := client.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "local answer", answer)
}

func TestOllamaClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Options{Model: "missing", OllamaHost: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "p")
	assert.Error(t, err)
}
