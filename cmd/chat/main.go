package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/llm"
	"document-qa/internal/models"
	"document-qa/internal/pipeline"
	"document-qa/internal/store"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	query := flag.String("query", "", "Ask a single question and exit")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()
	engine, closeStore, err := buildEngine(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building query pipeline")
	}
	defer closeStore()

	if *query != "" {
		st, err := engine.Run(ctx, pipeline.NewState(*query, nil))
		if err != nil {
			log.Fatal().Err(err).Msg("Query failed")
		}
		printAnswer(st)
		return
	}

	runChatLoop(ctx, engine)
}

func buildEngine(ctx context.Context, cfg *config.Config) (*pipeline.Engine, func(), error) {
	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}
	embedder = embedding.WithRetry(embedder, cfg.Retry.Attempts, cfg.Retry.Delay(), cfg.Retry.Timeout())

	generator, err := llm.NewGenerator(&cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	generator = llm.WithRetry(generator, cfg.Retry.Attempts, cfg.Retry.Delay(), cfg.Retry.Timeout())

	idx, err := store.Open(ctx, cfg.Store, cfg.Embedding.Model)
	if err != nil {
		return nil, nil, err
	}

	manager := store.NewManager(idx, embedder)
	engine := pipeline.New(manager, generator, cfg.RAG)
	return engine, func() { _ = idx.Close() }, nil
}

func runChatLoop(ctx context.Context, engine *pipeline.Engine) {
	fmt.Println("Document Q&A. Ask about your ingested documents.")
	fmt.Println("Type 'exit' or 'quit' to end, 'clear' to reset the conversation.")

	var history []models.Exchange
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "clear":
			history = nil
			fmt.Println("Conversation cleared.")
			continue
		}

		st, err := engine.Run(ctx, pipeline.NewState(input, history))
		if err != nil {
			// The failed turn keeps prior history intact.
			fmt.Printf("AI: Sorry, that didn't work: %v\n", err)
			continue
		}
		history = st.History
		printAnswer(st)
	}
}

func printAnswer(st pipeline.State) {
	fmt.Printf("AI: %s\n", st.Answer)
	if len(st.Citations) > 0 {
		fmt.Println("\nCitations:")
		for _, c := range st.Citations {
			fmt.Printf("  - %s, Page: %d\n", c.Document, c.Page)
		}
	}
}
