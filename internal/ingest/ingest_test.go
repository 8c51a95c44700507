package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"document-qa/internal/config"
	"document-qa/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constEmbedder is enough for ingestion tests: every text maps to the same
// unit vector, so only counts matter.
type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (constEmbedder) Model() string { return "const" }

func newTestDriver(t *testing.T) (*Driver, *store.Manager) {
	t.Helper()
	idx, err := store.NewMemoryIndex("test")
	require.NoError(t, err)
	m := store.NewManager(idx, constEmbedder{})
	cfg := &config.Config{}
	cfg.RAG.ChunkSize = 1000
	cfg.RAG.ChunkOverlap = 150
	return New(m, cfg), m
}

func TestRunIngestsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Document A talks about beams."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Document B talks about soil."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.csv"), []byte("a,b,c"), 0o644))

	driver, m := newTestDriver(t)
	report, err := driver.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Chunks)
	assert.Zero(t, report.FailedChunks)
	assert.Empty(t, report.Failures)

	count, err := m.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunWalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.txt"), []byte("Nested document."), 0o644))

	driver, _ := newTestDriver(t)
	report, err := driver.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
}

func TestRunContinuesPastCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("Healthy content."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o644))

	driver, _ := newTestDriver(t)
	report, err := driver.Run(context.Background(), dir)
	require.NoError(t, err, "a corrupt document must not abort the batch")

	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Documents)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Path, "broken.pdf")
	assert.Error(t, report.Failures[0].Err)
}

func TestRunSkipsEmptyDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   \n  "), 0o644))

	driver, _ := newTestDriver(t)
	report, err := driver.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, report.OK(), "an empty document is skipped, not failed")
	assert.Zero(t, report.Chunks)
}

func TestRunEmptyDirectory(t *testing.T) {
	driver, _ := newTestDriver(t)
	report, err := driver.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Documents)
}

func TestRunMissingDirectory(t *testing.T) {
	driver, _ := newTestDriver(t)
	_, err := driver.Run(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
