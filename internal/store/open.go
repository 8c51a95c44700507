package store

import (
	"context"
	"fmt"

	"document-qa/internal/config"
)

// Open builds the configured index backend. The embedding model identifier
// is checked against what the index was created with before any query runs.
func Open(ctx context.Context, cfg config.StoreConfig, embeddingModel string) (Index, error) {
	switch cfg.Backend {
	case "chromem", "":
		return NewChromemIndex(cfg, embeddingModel)
	case "postgres":
		return NewPostgresIndex(ctx, cfg, embeddingModel)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
