package chunker

import (
	"fmt"
	"strings"

	"document-qa/internal/models"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 150

	// maxTableTitleLen bounds the heuristic that treats a short leading line
	// as the table's title.
	maxTableTitleLen = 150
)

type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = defaultChunkOverlap
	}
	return c
}

// Chunk turns a document's element stream into retrievable chunks.
//
// Consecutive text elements on the same page are concatenated and split at
// the strongest boundary available inside the window: paragraph break, then
// sentence break, then whitespace, then a hard cut. Table elements become
// exactly one chunk each, never merged with prose and never split, even
// when they exceed the chunk size. Indices are assigned in production
// order, so identical input yields identical chunks.
func Chunk(docID string, elements []models.Element, cfg Config) ([]models.Chunk, error) {
	cfg = cfg.withDefaults()
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
	)

	var (
		chunks  []models.Chunk
		pending []string
		page    int
		nextIdx int
	)

	flush := func() error {
		joined := strings.TrimSpace(strings.Join(pending, "\n"))
		pending = pending[:0]
		if joined == "" {
			return nil
		}
		parts, err := splitter.SplitText(joined)
		if err != nil {
			return fmt.Errorf("split page %d: %w", page, err)
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Text:       part,
				DocumentID: docID,
				Page:       page,
				Index:      nextIdx,
			})
			nextIdx++
		}
		return nil
	}

	for _, el := range elements {
		if strings.TrimSpace(el.Content) == "" {
			continue
		}
		switch el.Kind {
		case models.ElementTable:
			if err := flush(); err != nil {
				return nil, err
			}
			chunks = append(chunks, models.Chunk{
				Text:       tableChunkText(docID, el),
				DocumentID: docID,
				Page:       el.Page,
				Index:      nextIdx,
				IsTable:    true,
			})
			nextIdx++
		default:
			if len(pending) > 0 && el.Page != page {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			page = el.Page
			pending = append(pending, el.Content)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// tableChunkText prefixes the raw table markup with a retrieval-friendly
// description: which document and page it came from and, when the first
// line looks like a caption, the table's title.
func tableChunkText(docID string, el models.Element) string {
	content := strings.TrimSpace(el.Content)

	var b strings.Builder
	fmt.Fprintf(&b, "The following is a data table extracted from document '%s', page %d. ", docID, el.Page)
	if title := tableTitle(content); title != "" {
		fmt.Fprintf(&b, "The table is titled or identified as: '%s'. ", title)
	}
	b.WriteString("The table content is:\n")
	b.WriteString(content)
	return b.String()
}

func tableTitle(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	first = strings.TrimSpace(first)
	if first == "" || strings.HasPrefix(first, "|") || len(first) >= maxTableTitleLen {
		return ""
	}
	return first
}
