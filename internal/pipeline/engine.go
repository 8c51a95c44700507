package pipeline

import (
	"context"
	"fmt"

	"document-qa/internal/config"
	"document-qa/internal/llm"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
)

// Node names. The graph is a fixed table: every run visits each node at
// most once and terminates at NodeEnd.
const (
	NodeStart         = "start"
	NodePreprocess    = "preprocess"
	NodeRoute         = "route"
	NodeRetrieve      = "retrieve"
	NodeFormatContext = "format_context"
	NodeGenerate      = "generate"
	NodeEnd           = "end"
)

// maxSteps caps the dispatch loop; with an acyclic table it is never hit
// and exists to turn a wiring mistake into an error instead of a spin.
const maxSteps = 16

// Retriever is the slice of the store manager the engine needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// NodeFunc transforms one state snapshot into the next.
type NodeFunc func(ctx context.Context, st State) (State, error)

// Engine runs the query workflow: a dispatch loop over named nodes with
// conditional edges evaluated on the state each node returns.
type Engine struct {
	nodes map[string]NodeFunc
	edges map[string]func(State) string
}

// New wires the graph:
//
//	start -> preprocess -> route -+-> retrieve -> format_context -+-> generate -> end
//	                              +--------- (no documents) ------+
func New(retriever Retriever, generator llm.Generator, cfg config.RAGConfig) *Engine {
	n := &nodes{retriever: retriever, generator: generator, cfg: cfg}

	return &Engine{
		nodes: map[string]NodeFunc{
			NodeStart:         n.start,
			NodePreprocess:    n.preprocess,
			NodeRoute:         n.route,
			NodeRetrieve:      n.retrieve,
			NodeFormatContext: n.formatContext,
			NodeGenerate:      n.generate,
		},
		edges: map[string]func(State) string{
			NodeStart:      static(NodePreprocess),
			NodePreprocess: static(NodeRoute),
			NodeRoute: func(st State) string {
				if st.NeedsRetrieval {
					return NodeRetrieve
				}
				return NodeGenerate
			},
			NodeRetrieve:      static(NodeFormatContext),
			NodeFormatContext: static(NodeGenerate),
			NodeGenerate:      static(NodeEnd),
		},
	}
}

func static(next string) func(State) string {
	return func(State) string { return next }
}

// Run executes one turn from NodeStart to NodeEnd. Any node error aborts
// the turn; the returned state then still holds the caller's prior history.
func (e *Engine) Run(ctx context.Context, st State) (State, error) {
	current := NodeStart
	for steps := 0; current != NodeEnd; steps++ {
		if steps >= maxSteps {
			return st, fmt.Errorf("workflow did not terminate after %d steps (at %q)", steps, current)
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		fn, ok := e.nodes[current]
		if !ok {
			return st, fmt.Errorf("workflow has no node %q", current)
		}
		log.Debug().Str("turn", st.TurnID).Str("node", current).Msg("executing node")

		next, err := fn(ctx, st)
		if err != nil {
			return st, err
		}
		st = next
		current = e.edges[current](st)
	}
	return st, nil
}

// Answer is the query entry point: one question plus optional prior
// history in, the answer text and the updated history out.
func (e *Engine) Answer(ctx context.Context, query string, history []models.Exchange) (string, []models.Exchange, error) {
	st, err := e.Run(ctx, NewState(query, history))
	if err != nil {
		return "", history, err
	}
	return st.Answer, st.History, nil
}
