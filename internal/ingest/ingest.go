package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/parser"
	"document-qa/internal/store"

	"github.com/rs/zerolog/log"
)

const defaultWorkers = 4

// DocumentFailure records one document that could not be ingested.
type DocumentFailure struct {
	Path string
	Err  error
}

// Report is the outcome of one ingestion run over a source directory.
// A partially failed run still ingests every healthy document.
type Report struct {
	Documents    int
	Chunks       int
	FailedChunks int
	Failures     []DocumentFailure
}

func (r Report) OK() bool {
	return len(r.Failures) == 0 && r.FailedChunks == 0
}

// Driver walks a source directory and pushes every supported document
// through parse, chunk and store.
type Driver struct {
	store   *store.Manager
	cfg     *config.Config
	workers int
}

func New(st *store.Manager, cfg *config.Config) *Driver {
	return &Driver{store: st, cfg: cfg, workers: defaultWorkers}
}

// Run ingests every supported file under dir. Documents are processed
// concurrently; each document remains a single upsert unit, so a reader
// never observes a half-replaced document. Per-document failures are
// collected and reported, never aborting the batch.
func (d *Driver) Run(ctx context.Context, dir string) (Report, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && parser.SupportedExt(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		log.Warn().Str("dir", dir).Msg("no supported documents found")
		return Report{}, nil
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report Report
		jobs   = make(chan string)
	)

	workers := d.workers
	if workers > len(paths) {
		workers = len(paths)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				chunks, failedChunks, err := d.processDocument(ctx, path)
				mu.Lock()
				if err != nil {
					log.Error().Err(err).Str("path", path).Msg("document ingestion failed")
					report.Failures = append(report.Failures, DocumentFailure{Path: path, Err: err})
				} else {
					report.Documents++
					report.Chunks += chunks
					report.FailedChunks += failedChunks
				}
				mu.Unlock()
			}
		}()
	}

	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return report, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	log.Info().
		Int("documents", report.Documents).
		Int("chunks", report.Chunks).
		Int("failed_chunks", report.FailedChunks).
		Int("failed_documents", len(report.Failures)).
		Msg("ingestion run complete")
	return report, nil
}

func (d *Driver) processDocument(ctx context.Context, path string) (int, int, error) {
	log.Info().Str("path", path).Msg("processing document")

	elements, err := parser.ParseElements(path)
	if err != nil {
		return 0, 0, err
	}
	if len(elements) == 0 {
		log.Warn().Str("path", path).Msg("no content parsed, skipping")
		return 0, 0, nil
	}

	docID := filepath.Base(path)
	chunks, err := chunker.Chunk(docID, elements, chunker.Config{
		ChunkSize:    d.cfg.RAG.ChunkSize,
		ChunkOverlap: d.cfg.RAG.ChunkOverlap,
	})
	if err != nil {
		return 0, 0, err
	}
	if len(chunks) == 0 {
		log.Warn().Str("path", path).Msg("no chunks produced, skipping")
		return 0, 0, nil
	}

	res, err := d.store.Ingest(ctx, docID, chunks)
	if err != nil {
		return 0, 0, err
	}
	log.Info().Str("path", path).Int("chunks", res.Ingested).Int("failed_chunks", len(res.Failed)).
		Msg("document ingested")
	return res.Ingested, len(res.Failed), nil
}
