package chunker

import (
	"strings"
	"testing"

	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textElement(content string, page int) models.Element {
	return models.Element{Kind: models.ElementText, Content: content, Page: page, DocumentID: "paper.pdf"}
}

func tableElement(content string, page int) models.Element {
	return models.Element{Kind: models.ElementTable, Content: content, Page: page, DocumentID: "paper.pdf"}
}

// longProse builds deterministic sentence-structured text of at least n chars.
func longProse(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString("The flexural strength of the tested specimen increased with curing time. ")
	}
	return strings.TrimSpace(b.String()[:n])
}

func TestSinglePageProseAndTable(t *testing.T) {
	elements := []models.Element{
		textElement(longProse(2500), 1),
		tableElement("| Mix | Strength |\n| A | 42 MPa |\n| B | 55 MPa |", 1),
	}

	chunks, err := Chunk("paper.pdf", elements, Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)

	var textChunks, tableChunks []models.Chunk
	for _, c := range chunks {
		if c.IsTable {
			tableChunks = append(tableChunks, c)
		} else {
			textChunks = append(textChunks, c)
		}
	}

	require.Len(t, tableChunks, 1)
	require.GreaterOrEqual(t, len(textChunks), 2, "2500 chars at size 1000 must span multiple chunks")

	for _, c := range chunks {
		assert.Equal(t, "paper.pdf", c.DocumentID)
		assert.Equal(t, 1, c.Page)
		assert.NotEmpty(t, c.Text)
	}
	for _, c := range textChunks {
		assert.LessOrEqual(t, c.CharLen(), 1000)
	}
	assert.Contains(t, tableChunks[0].Text, "| A | 42 MPa |")
}

func TestConsecutiveTextChunksOverlap(t *testing.T) {
	elements := []models.Element{textElement(longProse(3000), 1)}

	chunks, err := Chunk("paper.pdf", elements, Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i := 0; i < len(chunks)-1; i++ {
		assert.True(t, sharedBoundary(chunks[i].Text, chunks[i+1].Text) > 0,
			"chunks %d and %d share no overlap", i, i+1)
	}
}

// sharedBoundary returns the longest suffix of a that is a prefix of b.
func sharedBoundary(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}

func TestNoOverlapAcrossPages(t *testing.T) {
	pageOne := "Page one talks exclusively about reinforced concrete beams and their load capacity."
	pageTwo := "Page two covers soil mechanics and settlement behaviour of shallow foundations."
	elements := []models.Element{
		textElement(pageOne, 1),
		textElement(pageTwo, 2),
	}

	chunks, err := Chunk("paper.pdf", elements, Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 2, chunks[1].Page)
	assert.NotContains(t, chunks[0].Text, "soil mechanics")
	assert.NotContains(t, chunks[1].Text, "concrete beams")
}

func TestTableNeverSplit(t *testing.T) {
	var rows []string
	for i := 0; i < 200; i++ {
		rows = append(rows, "| specimen | 42.0 MPa | 28 days | mix-design-variant |")
	}
	table := strings.Join(rows, "\n")
	require.Greater(t, len(table), 5000)

	chunks, err := Chunk("paper.pdf", []models.Element{tableElement(table, 4)}, Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsTable)
	assert.Greater(t, chunks[0].CharLen(), 1000)
}

func TestTableNotMergedWithProse(t *testing.T) {
	elements := []models.Element{
		textElement("Intro paragraph before the table.", 1),
		tableElement("| a | b |\n| 1 | 2 |", 1),
		textElement("Discussion paragraph after the table.", 1),
	}

	chunks, err := Chunk("paper.pdf", elements, Config{})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.False(t, chunks[0].IsTable)
	assert.True(t, chunks[1].IsTable)
	assert.False(t, chunks[2].IsTable)
	assert.NotContains(t, chunks[0].Text, "| a | b |")
	assert.NotContains(t, chunks[2].Text, "| a | b |")
}

func TestEmptyElementsSkipped(t *testing.T) {
	elements := []models.Element{
		textElement("", 1),
		textElement("   \n\t  ", 1),
		tableElement("", 2),
		textElement("Actual content survives.", 3),
	}

	chunks, err := Chunk("paper.pdf", elements, Config{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Actual content survives.", chunks[0].Text)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Text)
	}
}

func TestIndicesSequentialAndDeterministic(t *testing.T) {
	elements := []models.Element{
		textElement(longProse(2200), 1),
		tableElement("| x | y |\n| 1 | 2 |", 1),
		textElement(longProse(1200), 2),
	}

	first, err := Chunk("paper.pdf", elements, Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)
	second, err := Chunk("paper.pdf", elements, Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)

	require.Equal(t, first, second)
	for i, c := range first {
		assert.Equal(t, i, c.Index)
	}
}

func TestTableTitleHeuristic(t *testing.T) {
	withTitle := tableElement("Table A.1 - Recommended testing parameters\n| param | value |\n| k | 5 |", 2)
	chunks, err := Chunk("paper.pdf", []models.Element{withTitle}, Config{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Table A.1 - Recommended testing parameters")
	assert.Contains(t, chunks[0].Text, "page 2")

	noTitle := tableElement("| param | value |\n| k | 5 |", 3)
	chunks, err = Chunk("paper.pdf", []models.Element{noTitle}, Config{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Text, "titled or identified as")
}
