package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir   string      `yaml:"data_dir"`
	Store     StoreConfig `yaml:"store"`
	Embedding LLMConfig   `yaml:"embedding"`
	LLM       LLMConfig   `yaml:"llm"`
	RAG       RAGConfig   `yaml:"rag"`
	Retry     RetryConfig `yaml:"retry"`
}

// StoreConfig selects and configures the vector index backend.
// Backend is "chromem" (embedded, persisted under Path) or "postgres"
// (pgvector via DSN).
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	DSN        string `yaml:"dsn"`
	Password   string `yaml:"password"`
	Debug      bool   `yaml:"debug"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type RAGConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
	HistoryTurns    int `yaml:"history_turns"`
}

// RetryConfig bounds the retry policy applied to embedding and generation
// calls. DelayMs is the initial backoff delay, doubled per attempt.
type RetryConfig struct {
	Attempts  uint `yaml:"attempts"`
	DelayMs   int  `yaml:"delay_ms"`
	TimeoutMs int  `yaml:"timeout_ms"`
}

func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayMs) * time.Millisecond
}

func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv overlays secrets from the environment so keys never have to live
// in the YAML file. The CLIs call godotenv before loading config.
func (c *Config) applyEnv() {
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		c.Embedding.Key = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.Key = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("STORE_PASSWORD"); v != "" {
		c.Store.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "chromem"
	}
	if c.Store.Path == "" {
		c.Store.Path = "./chromemdb"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "documents"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 150
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 10
	}
	if c.RAG.MaxContextChars == 0 {
		c.RAG.MaxContextChars = 12000
	}
	if c.RAG.HistoryTurns == 0 {
		c.RAG.HistoryTurns = 5
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.DelayMs == 0 {
		c.Retry.DelayMs = 500
	}
	if c.Retry.TimeoutMs == 0 {
		c.Retry.TimeoutMs = 60000
	}
}
