package embedding

import (
	"context"
	"fmt"
	"strings"

	"document-qa/internal/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder maps text to a fixed-dimension vector. The same implementation
// (and model) must be used at ingestion and at query time; the store checks
// Model() against what the index was built with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type langchainEmbedder struct {
	impl  *embeddings.EmbedderImpl
	model string
}

// NewEmbedder builds an embedder from config. Provider "ollama" talks to a
// local Ollama server, anything else goes through the OpenAI-compatible API
// at base_url (OpenAI, OpenRouter, etc).
func NewEmbedder(cfg *config.LLMConfig) (Embedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case "ollama":
		client, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err = openai.New(opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("init embedding client: %w", err)
	}

	impl, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &langchainEmbedder{impl: impl, model: cfg.Model}, nil
}

func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.impl.EmbedQuery(ctx, text)
}

func (e *langchainEmbedder) Model() string {
	return e.model
}
