package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"document-qa/internal/embedding"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
)

// Index is the vector index capability the manager orchestrates. Upsert
// replaces all of a document's entries as one logical unit; Search returns
// nearest neighbours by descending similarity.
type Index interface {
	Upsert(ctx context.Context, docID string, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// ChunkFailure records one chunk whose embedding failed past the retry cap.
type ChunkFailure struct {
	Index int
	Err   error
}

// IngestResult summarises one document's ingestion.
type IngestResult struct {
	Ingested int
	Failed   []ChunkFailure
}

// Manager ties the embedder and the index together: it embeds chunk text at
// ingestion and query text at retrieval with the same capability, keyed so
// re-ingestion replaces rather than duplicates.
type Manager struct {
	idx      Index
	embedder embedding.Embedder

	mu       sync.Mutex
	docLocks map[string]*sync.Mutex
}

func NewManager(idx Index, embedder embedding.Embedder) *Manager {
	return &Manager{
		idx:      idx,
		embedder: embedder,
		docLocks: make(map[string]*sync.Mutex),
	}
}

// Ingest embeds the document's chunks and upserts them as one unit.
// Concurrent ingestion of different documents is safe; concurrent ingestion
// of the same document id is serialized here, last writer wins. A chunk
// whose embedding fails past the retry cap is reported in the result and
// skipped; only a storage failure fails the whole document.
func (m *Manager) Ingest(ctx context.Context, docID string, chunks []models.Chunk) (IngestResult, error) {
	var res IngestResult
	if len(chunks) == 0 {
		return res, nil
	}

	kept := make([]models.Chunk, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := m.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			log.Warn().Err(err).Str("document", docID).Int("chunk", chunk.Index).
				Msg("embedding failed, skipping chunk")
			res.Failed = append(res.Failed, ChunkFailure{Index: chunk.Index, Err: err})
			continue
		}
		kept = append(kept, chunk)
		vectors = append(vectors, vector)
	}

	lock := m.lockFor(docID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.idx.Upsert(ctx, docID, kept, vectors); err != nil {
		return res, err
	}
	res.Ingested = len(kept)
	return res, nil
}

// Retrieve embeds the query and returns up to k chunks ranked by descending
// similarity, ties broken by lower chunk index. If the index holds fewer
// than k entries, all of them are returned.
func (m *Manager) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("retrieve: k must be positive, got %d", k)
	}

	count, err := m.idx.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := m.idx.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	return results, nil
}

func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.idx.Count(ctx)
}

func (m *Manager) Close() error {
	return m.idx.Close()
}

func (m *Manager) lockFor(docID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.docLocks[docID]
	if !ok {
		lock = &sync.Mutex{}
		m.docLocks[docID] = lock
	}
	return lock
}
