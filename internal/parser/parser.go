package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"document-qa/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ParseElements reads one document and returns its extraction stream: text
// and table elements tagged with page numbers. The document id is the base
// filename, which is also the upsert key prefix in the store.
func ParseElements(path string) ([]models.Element, error) {
	docID := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	var (
		elements []models.Element
		err      error
	)
	switch ext {
	case ".pdf":
		elements, err = parsePDF(path, docID)
	case ".md", ".markdown":
		elements, err = parseMarkdown(path, docID)
	case ".docx":
		elements, err = parseDOCX(path, docID)
	case ".xlsx":
		elements, err = parseXLSX(path, docID)
	case ".txt":
		elements, err = parseText(path, docID)
	default:
		err = fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, &models.ExtractionError{Path: path, Err: err}
	}
	return elements, nil
}

// SupportedExt reports whether the ingestion driver should pick up a file.
func SupportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".md", ".markdown", ".docx", ".xlsx", ".txt":
		return true
	}
	return false
}

func parsePDF(path, docID string) ([]models.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var elements []models.Element
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		elements = append(elements, splitPageBlocks(cleanText(pageText), i, docID)...)
	}
	return elements, nil
}

func parseDOCX(path, docID string) ([]models.Element, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var elements []models.Element
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		elements = append(elements, models.Element{
			Kind:       models.ElementText,
			Content:    cleanText(p),
			Page:       1,
			DocumentID: docID,
		})
	}
	return elements, nil
}

// parseXLSX turns every sheet into a single table element, one pipe-markup
// row per spreadsheet row. Sheets have no natural page numbers, so the
// 1-based sheet position stands in.
func parseXLSX(path, docID string) ([]models.Element, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var elements []models.Element
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		content := strings.TrimSpace(b.String())
		if content == "" {
			continue
		}
		elements = append(elements, models.Element{
			Kind:       models.ElementTable,
			Content:    content,
			Page:       sheetNum + 1,
			DocumentID: docID,
		})
	}
	return elements, nil
}

func parseText(path, docID string) ([]models.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Form feeds are the only page markers plain text can carry.
	var elements []models.Element
	for i, pageText := range strings.Split(string(data), "\f") {
		elements = append(elements, splitPageBlocks(cleanText(pageText), i+1, docID)...)
	}
	return elements, nil
}

// splitPageBlocks separates table-looking line runs from prose on one page.
// Two or more consecutive lines that each look like a delimited row are
// treated as a table element so the chunker can keep them whole.
func splitPageBlocks(pageText string, page int, docID string) []models.Element {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}

	var elements []models.Element
	var text, table []string

	flushText := func() {
		content := strings.TrimSpace(strings.Join(text, "\n"))
		text = text[:0]
		if content != "" {
			elements = append(elements, models.Element{
				Kind: models.ElementText, Content: content, Page: page, DocumentID: docID,
			})
		}
	}
	flushTable := func() {
		if len(table) >= 2 {
			flushText()
			elements = append(elements, models.Element{
				Kind:       models.ElementTable,
				Content:    strings.TrimSpace(strings.Join(table, "\n")),
				Page:       page,
				DocumentID: docID,
			})
		} else {
			// A lone delimited line is not a table, keep it with the prose.
			text = append(text, table...)
		}
		table = table[:0]
	}

	for _, line := range strings.Split(pageText, "\n") {
		if isTableRow(line) {
			table = append(table, line)
			continue
		}
		flushTable()
		text = append(text, line)
	}
	flushTable()
	flushText()
	return elements
}

func isTableRow(line string) bool {
	return strings.Count(line, "|") >= 2 || strings.Count(line, "\t") >= 2
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",   // null
		"\ufffd": "",   // unicode replacement character
		"\u001b": "",   // escape
		"\r":     "",   // carriage return
		"\f":     "\n", // form feed
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}
	for strings.Contains(cleaned, "  ") {
		cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	}
	return strings.TrimSpace(cleaned)
}
