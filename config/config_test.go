package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, ProviderAzure, cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embeddings.Model)
	assert.Equal(t, "gpt-35-turbo", cfg.LLM.Model)
	assert.Equal(t, "2023-05-15", cfg.Azure.APIVersion)
	assert.Equal(t, BackendMemory, cfg.IndexBackend)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 3, cfg.RetrievalK)
	assert.Equal(t, 60*time.Second, cfg.GatewayTimeout)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("EMBEDDING_PROVIDER", "OLLAMA")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("EMBED_RATE_LIMIT", "2.5")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, ProviderOllama, cfg.Embeddings.Provider)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.InDelta(t, 2.5, cfg.Embeddings.RateLimit, 1e-9)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-6)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfqa.yaml")
	content := "http_addr: \":7000\"\n" +
		"index_backend: pgvector\n" +
		"retrieval_k: 5\n" +
		"gateway_timeout: 10s\n" +
		"chunking:\n  size: 800\n  overlap: 100\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("RETRIEVAL_K", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, BackendPGVector, cfg.IndexBackend)
	assert.Equal(t, 4, cfg.RetrievalK, "environment wins over file")
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown embedding provider", key: "EMBEDDING_PROVIDER", val: "cohere"},
		{name: "unknown llm provider", key: "LLM_PROVIDER", val: "bard"},
		{name: "unknown backend", key: "INDEX_BACKEND", val: "faiss"},
		{name: "non numeric chunk size", key: "CHUNK_SIZE", val: "big"},
		{name: "bad timeout", key: "GATEWAY_TIMEOUT", val: "soon"},
		{name: "zero k", key: "RETRIEVAL_K", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
