package pipeline

import (
	"document-qa/internal/helper"
	"document-qa/internal/models"
)

// State is the conversation record threaded through the workflow graph.
// Nodes receive a snapshot by value and return a new snapshot; nothing is
// mutated in place, so a failed turn leaves the caller's history untouched.
type State struct {
	TurnID         string
	OriginalQuery  string
	WorkingQuery   string
	NeedsRetrieval bool

	RetrievedChunks []models.ScoredChunk
	Context         string
	Answer          string
	Citations       []Citation

	History []models.Exchange
}

// Citation points at the document location an answer statement came from.
type Citation struct {
	Document string
	Page     int
}

// NewState seeds a fresh turn, optionally carrying prior history.
func NewState(query string, history []models.Exchange) State {
	return State{
		TurnID:        helper.NewTurnID(),
		OriginalQuery: query,
		History:       history,
	}
}
