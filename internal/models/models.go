package models

// ElementKind distinguishes plain prose from structured tables in the
// extraction stream.
type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementTable ElementKind = "table"
)

// Element is one unit produced by a document parser: a block of text or a
// table rendered as pipe markup, tied to the page it came from.
type Element struct {
	Kind       ElementKind
	Content    string
	Page       int
	DocumentID string
}

// Chunk is a bounded span of document content prepared for embedding.
// Index is assigned sequentially per document in production order, so
// (DocumentID, Index) identifies a chunk across re-ingestion runs.
type Chunk struct {
	Text       string
	DocumentID string
	Page       int
	Index      int
	IsTable    bool
}

// CharLen reports the chunk size used for the max-size invariant checks.
func (c Chunk) CharLen() int {
	return len(c.Text)
}

// ScoredChunk is a retrieval result: a stored chunk plus its similarity
// score against the query, higher is more similar.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Exchange is one completed query/answer turn kept in conversation history.
type Exchange struct {
	Query  string
	Answer string
}
