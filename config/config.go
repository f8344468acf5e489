package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	BackendMemory   = "memory"
	BackendPGVector = "pgvector"
	BackendNeo4j    = "neo4j"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "PDFQA_CONFIG"

type EmbeddingConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Dimension   int     `yaml:"dimension"`
	Concurrency int     `yaml:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	APIVersion string `yaml:"api_version"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	Embeddings EmbeddingConfig `yaml:"embeddings"`
	LLM        LLMConfig       `yaml:"llm"`
	Azure      AzureConfig     `yaml:"azure"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaHost    string `yaml:"ollama_host"`

	IndexBackend string `yaml:"index_backend"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	Neo4jURI     string `yaml:"neo4j_uri"`
	Neo4jUser    string `yaml:"neo4j_username"`
	Neo4jPass    string `yaml:"neo4j_password"`

	Chunking       ChunkingConfig `yaml:"chunking"`
	RetrievalK     int            `yaml:"retrieval_k"`
	GatewayTimeout time.Duration  `yaml:"gateway_timeout"`
	MaxUploadBytes int64          `yaml:"max_upload_bytes"`
	ScratchDir     string         `yaml:"scratch_dir"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr: ":8000",
		Embeddings: EmbeddingConfig{
			Provider:    ProviderAzure,
			Model:       "text-embedding-ada-002",
			Concurrency: 4,
		},
		LLM: LLMConfig{
			Provider: ProviderAzure,
			Model:    "gpt-35-turbo",
		},
		Azure: AzureConfig{
			APIVersion: "2023-05-15",
		},
		OllamaHost:     "http://localhost:11434",
		IndexBackend:   BackendMemory,
		PostgresDSN:    "postgres://localhost:5432/pdfqa?sslmode=disable",
		Neo4jURI:       "neo4j://localhost:7687",
		Neo4jUser:      "neo4j",
		Neo4jPass:      "password",
		Chunking:       ChunkingConfig{Size: 1000, Overlap: 200},
		RetrievalK:     3,
		GatewayTimeout: 60 * time.Second,
		MaxUploadBytes: 32 << 20,
		ScratchDir:     os.TempDir(),
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence. A .env file in the working
// directory is loaded into the environment first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := getEnv(ConfigFileEnv, ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)

	cfg.Embeddings.Provider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", cfg.Embeddings.Provider))
	cfg.Embeddings.Model = getEnv("EMBEDDING_MODEL", cfg.Embeddings.Model)
	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)

	cfg.Azure.Endpoint = getEnv("AZ_OPENAI_ENDPOINT", cfg.Azure.Endpoint)
	cfg.Azure.APIKey = getEnv("AZ_OPENAI_API_KEY", cfg.Azure.APIKey)
	cfg.Azure.APIVersion = getEnv("AZ_OPENAI_API_VERSION", cfg.Azure.APIVersion)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)

	cfg.IndexBackend = strings.ToLower(getEnv("INDEX_BACKEND", cfg.IndexBackend))
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.Neo4jURI = getEnv("NEO4J_URI", cfg.Neo4jURI)
	cfg.Neo4jUser = getEnv("NEO4J_USERNAME", cfg.Neo4jUser)
	cfg.Neo4jPass = getEnv("NEO4J_PASSWORD", cfg.Neo4jPass)
	cfg.ScratchDir = getEnv("SCRATCH_DIR", cfg.ScratchDir)

	var err error
	if cfg.Embeddings.Dimension, err = getEnvInt("EMBEDDING_DIMENSION", cfg.Embeddings.Dimension); err != nil {
		return err
	}
	if cfg.Embeddings.Concurrency, err = getEnvInt("EMBED_CONCURRENCY", cfg.Embeddings.Concurrency); err != nil {
		return err
	}
	if cfg.Chunking.Size, err = getEnvInt("CHUNK_SIZE", cfg.Chunking.Size); err != nil {
		return err
	}
	if cfg.Chunking.Overlap, err = getEnvInt("CHUNK_OVERLAP", cfg.Chunking.Overlap); err != nil {
		return err
	}
	if cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", cfg.RetrievalK); err != nil {
		return err
	}

	if raw := getEnv("EMBED_RATE_LIMIT", ""); raw != "" {
		if cfg.Embeddings.RateLimit, err = strconv.ParseFloat(raw, 64); err != nil {
			return fmt.Errorf("parse EMBED_RATE_LIMIT: %w", err)
		}
	}
	if raw := getEnv("LLM_TEMPERATURE", ""); raw != "" {
		value, parseErr := strconv.ParseFloat(raw, 32)
		if parseErr != nil {
			return fmt.Errorf("parse LLM_TEMPERATURE: %w", parseErr)
		}
		cfg.LLM.Temperature = float32(value)
	}
	if raw := getEnv("GATEWAY_TIMEOUT", ""); raw != "" {
		if cfg.GatewayTimeout, err = time.ParseDuration(raw); err != nil {
			return fmt.Errorf("parse GATEWAY_TIMEOUT: %w", err)
		}
	}
	if raw := getEnv("MAX_UPLOAD_BYTES", ""); raw != "" {
		if cfg.MaxUploadBytes, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
		}
	}

	return nil
}

// Validate rejects provider and backend names the binary does not know about.
func (c Config) Validate() error {
	if !knownProvider(c.Embeddings.Provider) {
		return fmt.Errorf("unknown embedding provider: %s", c.Embeddings.Provider)
	}
	if !knownProvider(c.LLM.Provider) {
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	switch c.IndexBackend {
	case BackendMemory, BackendPGVector, BackendNeo4j:
	default:
		return fmt.Errorf("unknown index backend: %s", c.IndexBackend)
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("retrieval k must be positive, got %d", c.RetrievalK)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func knownProvider(name string) bool {
	switch name {
	case ProviderAzure, ProviderOpenAI, ProviderOllama:
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}
