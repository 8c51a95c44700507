package parser

import (
	"os"
	"path/filepath"
	"testing"

	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSupportedExt(t *testing.T) {
	assert.True(t, SupportedExt("a.pdf"))
	assert.True(t, SupportedExt("b.MD"))
	assert.True(t, SupportedExt("c.docx"))
	assert.True(t, SupportedExt("d.xlsx"))
	assert.True(t, SupportedExt("e.txt"))
	assert.False(t, SupportedExt("f.csv"))
	assert.False(t, SupportedExt("g.png"))
	assert.False(t, SupportedExt("Makefile"))
}

func TestParseTextFormFeedPages(t *testing.T) {
	path := writeFile(t, "notes.txt", "first page content\fsecond page content")

	elements, err := ParseElements(path)
	require.NoError(t, err)
	require.Len(t, elements, 2)

	assert.Equal(t, 1, elements[0].Page)
	assert.Equal(t, "first page content", elements[0].Content)
	assert.Equal(t, 2, elements[1].Page)
	assert.Equal(t, "second page content", elements[1].Content)
	for _, el := range elements {
		assert.Equal(t, models.ElementText, el.Kind)
		assert.Equal(t, "notes.txt", el.DocumentID)
	}
}

func TestParseTextDetectsDelimitedTables(t *testing.T) {
	content := "Intro paragraph.\n" +
		"| name | score |\n" +
		"| anna | 10 |\n" +
		"| ben | 7 |\n" +
		"Closing remark."
	path := writeFile(t, "report.txt", content)

	elements, err := ParseElements(path)
	require.NoError(t, err)
	require.Len(t, elements, 3)

	assert.Equal(t, models.ElementText, elements[0].Kind)
	assert.Equal(t, "Intro paragraph.", elements[0].Content)

	assert.Equal(t, models.ElementTable, elements[1].Kind)
	assert.Contains(t, elements[1].Content, "| anna | 10 |")

	assert.Equal(t, models.ElementText, elements[2].Kind)
	assert.Equal(t, "Closing remark.", elements[2].Content)
}

func TestLoneDelimitedLineStaysProse(t *testing.T) {
	content := "Some prose.\n| a | b |\nMore prose."
	path := writeFile(t, "single.txt", content)

	elements, err := ParseElements(path)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, models.ElementText, elements[0].Kind)
	assert.Contains(t, elements[0].Content, "| a | b |")
}

func TestParseMarkdownTableAndProse(t *testing.T) {
	content := `# Results

The specimens were tested after 28 days.

| Mix | Strength |
| --- | --- |
| A | 42 MPa |
| B | 55 MPa |

Strength increased with curing time.
`
	path := writeFile(t, "results.md", content)

	elements, err := ParseElements(path)
	require.NoError(t, err)
	require.Len(t, elements, 3)

	assert.Equal(t, models.ElementText, elements[0].Kind)
	assert.Contains(t, elements[0].Content, "Results")
	assert.Contains(t, elements[0].Content, "28 days")

	assert.Equal(t, models.ElementTable, elements[1].Kind)
	assert.Contains(t, elements[1].Content, "| Mix | Strength |")
	assert.Contains(t, elements[1].Content, "| A | 42 MPa |")
	assert.Contains(t, elements[1].Content, "| B | 55 MPa |")

	assert.Equal(t, models.ElementText, elements[2].Kind)
	assert.Contains(t, elements[2].Content, "curing time")
}

func TestParseMarkdownWithoutTables(t *testing.T) {
	path := writeFile(t, "plain.md", "Just a paragraph.\n\nAnd another one.\n")

	elements, err := ParseElements(path)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, models.ElementText, elements[0].Kind)
	assert.Contains(t, elements[0].Content, "Just a paragraph.")
	assert.Contains(t, elements[0].Content, "And another one.")
}

func TestUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "data.csv", "a,b,c")

	_, err := ParseElements(path)
	require.Error(t, err)
	var xerr *models.ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, path, xerr.Path)
}

func TestCorruptPDFIsExtractionError(t *testing.T) {
	path := writeFile(t, "broken.pdf", "this is not a pdf")

	_, err := ParseElements(path)
	require.Error(t, err)
	var xerr *models.ExtractionError
	assert.ErrorAs(t, err, &xerr)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b", cleanText("a\x00  b\r"))
	assert.Equal(t, "x y", cleanText("  x \ufffd y  "))
	assert.Equal(t, "", cleanText("\x1b\r"))
}

func TestIsTableRow(t *testing.T) {
	assert.True(t, isTableRow("| a | b |"))
	assert.True(t, isTableRow("a\tb\tc"))
	assert.False(t, isTableRow("pipe | in prose"))
	assert.False(t, isTableRow("plain sentence"))
}
