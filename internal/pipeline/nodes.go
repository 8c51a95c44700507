package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/llm"
	"document-qa/internal/models"

	"github.com/rs/zerolog/log"
)

type nodes struct {
	retriever Retriever
	generator llm.Generator
	cfg       config.RAGConfig
}

func (n *nodes) start(_ context.Context, st State) (State, error) {
	st.WorkingQuery = st.OriginalQuery
	st.NeedsRetrieval = true
	return st, nil
}

// preprocessResponse is the JSON shape the rewrite prompt asks for.
type preprocessResponse struct {
	RetrievalQuery    string `json:"retrieval_query"`
	RequiresDocuments bool   `json:"requires_documents"`
}

// preprocess asks the generator to rewrite the query for retrieval and to
// classify whether document grounding is needed at all. Any failure here is
// not fatal: the turn falls back to the original query with retrieval on.
func (n *nodes) preprocess(ctx context.Context, st State) (State, error) {
	prompt := fmt.Sprintf(preprocessPromptTemplate, formatHistory(st.History, n.cfg.HistoryTurns), st.OriginalQuery)

	raw, err := n.generator.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("turn", st.TurnID).Msg("query preprocessing failed, using original query")
		return st, nil
	}

	var parsed preprocessResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		log.Warn().Err(err).Str("turn", st.TurnID).Msg("unparseable preprocess response, using original query")
		return st, nil
	}

	if q := strings.TrimSpace(parsed.RetrievalQuery); q != "" {
		st.WorkingQuery = q
	}
	st.NeedsRetrieval = parsed.RequiresDocuments
	return st, nil
}

func (n *nodes) route(_ context.Context, st State) (State, error) {
	if !st.NeedsRetrieval {
		log.Info().Str("turn", st.TurnID).Msg("query does not require document grounding, skipping retrieval")
	}
	return st, nil
}

func (n *nodes) retrieve(ctx context.Context, st State) (State, error) {
	chunks, err := n.retriever.Retrieve(ctx, st.WorkingQuery, n.cfg.TopK)
	if err != nil {
		return st, &models.PipelineError{Stage: models.StageRetrieve, Err: err}
	}
	log.Info().Str("turn", st.TurnID).Int("chunks", len(chunks)).Msg("retrieved context chunks")
	st.RetrievedChunks = chunks
	return st, nil
}

// formatContext renders the ranked chunks with citation markers, bounded
// by the configured context budget. An empty result set renders the
// canonical marker instead of omitting the section.
func (n *nodes) formatContext(_ context.Context, st State) (State, error) {
	if len(st.RetrievedChunks) == 0 {
		st.Context = NoContextMarker
		return st, nil
	}

	var b strings.Builder
	for i, sc := range st.RetrievedChunks {
		section := fmt.Sprintf("Document %d [Source: %s, Page: %d]:\n%s\n---END DOCUMENT %d---\n",
			i+1, sc.Chunk.DocumentID, sc.Chunk.Page, sc.Chunk.Text, i+1)
		if n.cfg.MaxContextChars > 0 && b.Len() > 0 && b.Len()+len(section) > n.cfg.MaxContextChars {
			log.Debug().Str("turn", st.TurnID).Int("kept", i).Msg("context budget reached, dropping lower-ranked chunks")
			break
		}
		b.WriteString(section)
	}
	st.Context = strings.TrimRight(b.String(), "\n")
	return st, nil
}

func (n *nodes) generate(ctx context.Context, st State) (State, error) {
	if st.Context == "" {
		st.Context = NoContextMarker
	}

	hist := formatHistory(st.History, n.cfg.HistoryTurns)
	var prompt string
	if st.NeedsRetrieval {
		prompt = fmt.Sprintf(answerFromDocsPromptTemplate, st.OriginalQuery, hist, st.Context)
	} else {
		prompt = fmt.Sprintf(generalAnswerPromptTemplate, hist, st.OriginalQuery)
	}

	answer, err := n.generator.Generate(ctx, prompt)
	if err != nil {
		if _, ok := err.(*models.PipelineError); ok {
			return st, err
		}
		return st, &models.PipelineError{Stage: models.StageGenerate, Err: err}
	}

	st.Answer = strings.TrimSpace(answer)
	st.Citations = extractCitations(st.Answer)

	history := make([]models.Exchange, len(st.History), len(st.History)+1)
	copy(history, st.History)
	st.History = append(history, models.Exchange{Query: st.OriginalQuery, Answer: st.Answer})
	return st, nil
}

func formatHistory(history []models.Exchange, maxTurns int) string {
	if len(history) == 0 {
		return "No chat history available."
	}
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var lines []string
	for _, ex := range history {
		lines = append(lines, "User: "+ex.Query, "AI: "+ex.Answer)
	}
	return strings.Join(lines, "\n")
}

// stripCodeFence unwraps ```json fenced responses some models insist on.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var citationPattern = regexp.MustCompile(`\[Source:\s*([^,\]]+),\s*Page:\s*(\d+)\s*\]`)

func extractCitations(answer string) []Citation {
	var citations []Citation
	seen := make(map[Citation]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		page, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		c := Citation{Document: strings.TrimSpace(match[1]), Page: page}
		if !seen[c] {
			seen[c] = true
			citations = append(citations, c)
		}
	}
	return citations
}
