package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/pdfqa/config"
)

func TestNewEmbedderProviders(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name: "ollama",
			mutate: func(c *config.Config) {
				c.Embeddings.Provider = config.ProviderOllama
				c.Embeddings.Model = "nomic-embed-text"
			},
		},
		{
			name: "openai with key",
			mutate: func(c *config.Config) {
				c.Embeddings.Provider = config.ProviderOpenAI
				c.OpenAIAPIKey = "sk-test"
			},
		},
		{
			name: "openai missing key",
			mutate: func(c *config.Config) {
				c.Embeddings.Provider = config.ProviderOpenAI
			},
			wantErr: true,
		},
		{
			name: "azure with credentials",
			mutate: func(c *config.Config) {
				c.Azure.Endpoint = "https://example.openai.azure.com"
				c.Azure.APIKey = "key"
			},
		},
		{
			name:    "azure missing credentials",
			mutate:  func(c *config.Config) {},
			wantErr: true,
		},
		{
			name: "unknown provider",
			mutate: func(c *config.Config) {
				c.Embeddings.Provider = "cohere"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			embedder, err := NewEmbedder(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, embedder)
		})
	}
}

func TestNewEmbedderWrapsRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Embeddings.Provider = config.ProviderOllama
	cfg.Embeddings.RateLimit = 5

	embedder, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, embedder)
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-3-small", body.Model)
		assert.Equal(t, []string{"hello"}, body.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(Options{
		Model:         "text-embedding-3-small",
		Dimension:     3,
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: server.URL + "/v1",
	})

	vec, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(Options{
		Model:         "text-embedding-3-small",
		Dimension:     3,
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: server.URL + "/v1",
	})

	_, err := embedder.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestAzureEmbedderUsesDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/openai/deployments/text-embedding-ada-002/embeddings"), r.URL.Path)
		assert.Equal(t, "2023-05-15", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	embedder := NewAzureEmbedder(Options{
		Model:           "text-embedding-ada-002",
		AzureEndpoint:   server.URL,
		AzureAPIKey:     "azure-key",
		AzureAPIVersion: "2023-05-15",
	})

	vec, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestOpenAIEmbedderSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	embedder := NewOpenAIEmbedder(Options{Model: "m", OpenAIAPIKey: "k", OpenAIBaseURL: server.URL + "/v1"})
	_, err := embedder.Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		assert.Equal(t, "hello", body["input"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[0.5,0.25]]}`))
	}))
	defer server.Close()

	embedder, err := NewOllamaEmbedder(Options{Model: "nomic-embed-text", OllamaHost: server.URL})
	require.NoError(t, err)

	vec, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1}, nil
}

func TestRateLimitedPassesThrough(t *testing.T) {
	inner := &countingEmbedder{}
	limited := NewRateLimited(inner, 1000, 10)

	for i := 0; i < 5; i++ {
		_, err := limited.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(5), inner.calls.Load())
}

func TestRateLimitedHonoursContext(t *testing.T) {
	inner := &countingEmbedder{}
	limited := NewRateLimited(inner, 0.01, 1)

	_, err := limited.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Embed(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRateLimitedPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	limited := NewRateLimited(&countingEmbedder{err: boom}, 100, 1)

	_, err := limited.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}
