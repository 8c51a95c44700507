package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// vectorDim must match the embedding model's output dimension.
const vectorDim = 768

type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	DocumentID    string    `bun:"document_id,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
	Page          int       `bun:"page,notnull"`
	IsTable       bool      `bun:"is_table,notnull"`
	Content       string    `bun:"content,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
}

type metaRow struct {
	bun.BaseModel `bun:"table:store_meta,alias:m"`
	Key           string `bun:"key,pk"`
	Value         string `bun:"value,notnull"`
}

// PostgresIndex is the pgvector-backed index for deployments that already
// run Postgres. Requires the pgvector extension.
type PostgresIndex struct {
	db *bun.DB
}

func NewPostgresIndex(ctx context.Context, cfg config.StoreConfig, embeddingModel string) (*PostgresIndex, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "sslmode=") {
		dsn += "?sslmode=disable"
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	p := &PostgresIndex{db: db}
	if err := p.initSchema(ctx); err != nil {
		return nil, err
	}
	if err := p.checkMeta(ctx, embeddingModel); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PostgresIndex) initSchema(ctx context.Context) error {
	if _, err := p.db.NewCreateTable().Model((*chunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create chunks table: %v", models.ErrStorageUnavailable, err)
	}
	if _, err := p.db.NewCreateTable().Model((*metaRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create meta table: %v", models.ErrStorageUnavailable, err)
	}
	_, err := p.db.NewCreateIndex().
		Model((*chunkRow)(nil)).
		Index("chunks_document_chunk_idx").
		Unique().
		Column("document_id", "chunk_index").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create chunk key index: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (p *PostgresIndex) checkMeta(ctx context.Context, embeddingModel string) error {
	var meta metaRow
	err := p.db.NewSelect().Model(&meta).Where("key = ?", "embedding_model").Scan(ctx)
	if err == sql.ErrNoRows {
		meta = metaRow{Key: "embedding_model", Value: embeddingModel}
		if _, err := p.db.NewInsert().Model(&meta).Exec(ctx); err != nil {
			return fmt.Errorf("%w: record embedding model: %v", models.ErrStorageUnavailable, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read meta: %v", models.ErrStorageUnavailable, err)
	}
	if meta.Value != embeddingModel {
		return &models.ConfigMismatchError{Stored: meta.Value, Configured: embeddingModel}
	}
	return nil
}

// Upsert replaces the document's chunks inside one transaction, which is
// the whole-document atomicity unit a concurrent reader observes.
func (p *PostgresIndex) Upsert(ctx context.Context, docID string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upsert %s: %d chunks but %d vectors", docID, len(chunks), len(vectors))
	}

	rows := make([]chunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = chunkRow{
			DocumentID: docID,
			ChunkIndex: chunk.Index,
			Page:       chunk.Page,
			IsTable:    chunk.IsTable,
			Content:    chunk.Text,
			Embedding:  vectors[i],
		}
	}

	err := p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*chunkRow)(nil)).Where("document_id = ?", docID).Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", models.ErrStorageUnavailable, docID, err)
	}
	return nil
}

func (p *PostgresIndex) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	type scoredRow struct {
		chunkRow
		Score float32 `bun:"score"`
	}

	lit := vectorLiteral(vector)
	var rows []scoredRow
	err := p.db.NewSelect().
		Model((*chunkRow)(nil)).
		ColumnExpr("c.*").
		ColumnExpr("1 - (c.embedding <=> ?) AS score", lit).
		OrderExpr("c.embedding <=> ?", lit).
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", models.ErrStorageUnavailable, err)
	}

	scored := make([]models.ScoredChunk, 0, len(rows))
	for _, row := range rows {
		scored = append(scored, models.ScoredChunk{
			Chunk: models.Chunk{
				Text:       row.Content,
				DocumentID: row.DocumentID,
				Page:       row.Page,
				Index:      row.ChunkIndex,
				IsTable:    row.IsTable,
			},
			Score: row.Score,
		})
	}
	return scored, nil
}

func (p *PostgresIndex) Count(ctx context.Context) (int, error) {
	count, err := p.db.NewSelect().Model((*chunkRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", models.ErrStorageUnavailable, err)
	}
	return count, nil
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

// vectorLiteral renders a vector as the '[x,y,...]' literal pgvector expects.
func vectorLiteral(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
