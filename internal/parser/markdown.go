package parser

import (
	"os"
	"strings"

	"document-qa/internal/models"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// parseMarkdown walks the GFM syntax tree so pipe tables come out as table
// elements instead of being flattened into prose. Markdown has no pages;
// everything lands on page 1.
func parseMarkdown(path, docID string) ([]models.Element, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := markdown.Parser().Parse(text.NewReader(src))

	var elements []models.Element
	var prose []string

	flushProse := func() {
		content := strings.TrimSpace(strings.Join(prose, "\n\n"))
		prose = prose[:0]
		if content != "" {
			elements = append(elements, models.Element{
				Kind: models.ElementText, Content: content, Page: 1, DocumentID: docID,
			})
		}
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if node.Kind() == east.KindTable {
			flushProse()
			elements = append(elements, models.Element{
				Kind:       models.ElementTable,
				Content:    renderTable(node, src),
				Page:       1,
				DocumentID: docID,
			})
			continue
		}
		if block := string(node.Text(src)); strings.TrimSpace(block) != "" {
			prose = append(prose, strings.TrimSpace(block))
		}
	}
	flushProse()
	return elements, nil
}

// renderTable rebuilds a parsed table as pipe markup so the stored chunk
// keeps its row/column structure.
func renderTable(table ast.Node, src []byte) string {
	var b strings.Builder
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, string(cell.Text(src)))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if row.Kind() == east.KindTableHeader {
			b.WriteString("|" + strings.Repeat(" --- |", len(cells)) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
