package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"document-qa/internal/config"
	"document-qa/internal/models"

	"github.com/philippgille/chromem-go"
)

const metaFileName = "store_meta.json"

// storeMeta is persisted next to the chromem data so a later run can verify
// it is about to query the index with the same embedding model that built it.
type storeMeta struct {
	EmbeddingModel string `json:"embedding_model"`
	Collection     string `json:"collection"`
}

// ChromemIndex is the embedded vector index backend, persisted on disk and
// loaded in full at startup.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemIndex opens (or creates) the persistent collection and verifies
// the recorded embedding model against the configured one. A mismatch is a
// ConfigMismatchError and must abort startup.
func NewChromemIndex(cfg config.StoreConfig, embeddingModel string) (*ChromemIndex, error) {
	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrStorageUnavailable, cfg.Path, err)
	}

	if err := checkMeta(filepath.Join(cfg.Path, metaFileName), embeddingModel, cfg.Collection); err != nil {
		return nil, err
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, map[string]string{
		"embedding_model": embeddingModel,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", models.ErrStorageUnavailable, cfg.Collection, err)
	}
	return &ChromemIndex{db: db, collection: collection}, nil
}

// NewMemoryIndex is the in-memory variant used by tests: same behavior, no
// persistence and no model check.
func NewMemoryIndex(collection string) (*ChromemIndex, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", models.ErrStorageUnavailable, collection, err)
	}
	return &ChromemIndex{db: db, collection: col}, nil
}

func checkMeta(path, embeddingModel, collection string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		meta := storeMeta{EmbeddingModel: embeddingModel, Collection: collection}
		out, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, out, 0o644)
	}
	if err != nil {
		return fmt.Errorf("%w: read meta: %v", models.ErrStorageUnavailable, err)
	}
	var meta storeMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%w: corrupt meta %s: %v", models.ErrStorageUnavailable, path, err)
	}
	if meta.EmbeddingModel != embeddingModel {
		return &models.ConfigMismatchError{Stored: meta.EmbeddingModel, Configured: embeddingModel}
	}
	return nil
}

func (x *ChromemIndex) Upsert(ctx context.Context, docID string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upsert %s: %d chunks but %d vectors", docID, len(chunks), len(vectors))
	}

	// Whole-document replacement: stale chunks from a previous ingestion run
	// must not survive alongside the new ones.
	if err := x.collection.Delete(ctx, map[string]string{"document": docID}, nil); err != nil {
		return fmt.Errorf("%w: delete %s: %v", models.ErrStorageUnavailable, docID, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s:%d", docID, chunk.Index),
			Content: chunk.Text,
			Metadata: map[string]string{
				"document":    docID,
				"page":        strconv.Itoa(chunk.Page),
				"chunk_index": strconv.Itoa(chunk.Index),
				"is_table":    strconv.FormatBool(chunk.IsTable),
			},
			Embedding: vectors[i],
		}
	}
	if err := x.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: add %s: %v", models.ErrStorageUnavailable, docID, err)
	}
	return nil
}

func (x *ChromemIndex) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	results, err := x.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", models.ErrStorageUnavailable, err)
	}

	scored := make([]models.ScoredChunk, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		idx, _ := strconv.Atoi(res.Metadata["chunk_index"])
		isTable, _ := strconv.ParseBool(res.Metadata["is_table"])
		scored = append(scored, models.ScoredChunk{
			Chunk: models.Chunk{
				Text:       res.Content,
				DocumentID: res.Metadata["document"],
				Page:       page,
				Index:      idx,
				IsTable:    isTable,
			},
			Score: res.Similarity,
		})
	}
	return scored, nil
}

func (x *ChromemIndex) Count(ctx context.Context) (int, error) {
	return x.collection.Count(), nil
}

func (x *ChromemIndex) Close() error {
	// chromem persists synchronously on every write, nothing to flush.
	return nil
}
