package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/ingest"
	"document-qa/internal/store"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	dir := flag.String("dir", "", "Source directory with documents (defaults to data_dir from config)")
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
	if *dir == "" {
		*dir = cfg.DataDir
	}

	ctx := context.Background()

	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	embedder = embedding.WithRetry(embedder, cfg.Retry.Attempts, cfg.Retry.Delay(), cfg.Retry.Timeout())

	idx, err := store.Open(ctx, cfg.Store, cfg.Embedding.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer idx.Close()

	driver := ingest.New(store.NewManager(idx, embedder), cfg)

	report, err := driver.Run(ctx, *dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion run aborted")
	}

	if *verbose {
		helper.PrettyPrint(report)
	}
	for _, failure := range report.Failures {
		log.Error().Err(failure.Err).Str("path", failure.Path).Msg("document failed")
	}
	if !report.OK() {
		os.Exit(1)
	}
}
