package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/embedding"
	"docchat/internal/llm"
	"docchat/internal/service"
	"docchat/internal/session"
	"docchat/internal/summarizer"
	"docchat/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var topK int
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.IntVar(&topK, "k", 0, "Number of chunks to retrieve per question (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: docchat [--config=config.yaml] [-k=3] document.txt")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if topK <= 0 {
		topK = cfg.Pipeline.TopK
	}

	apiKey := os.Getenv(cfg.Embedder.APIKeyEnv)
	if apiKey == "" {
		log.Fatal().Msgf("missing API key in env %s", cfg.Embedder.APIKeyEnv)
	}

	// Assemble components
	ch, err := chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid chunker config")
	}
	emb := embedding.NewGateway(embedding.Config{
		BaseURL:           cfg.Embedder.BaseURL,
		Model:             cfg.Embedder.Model,
		Timeout:           time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		BatchSize:         cfg.Embedder.BatchSize,
		MaxRetries:        cfg.Embedder.MaxRetries,
		RequestsPerSecond: cfg.Embedder.RequestsPerSecond,
	})
	comp := llm.NewClient(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	svc := service.New(ch, emb, comp, session.NewRegistry(),
		summarizer.NewFrequency(cfg.Pipeline.PreviewMaxSentences), cfg.LLM.RAGModel)

	// Treat the input as already-extracted plain text.
	docPath := args[0]
	data, err := os.ReadFile(docPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read document")
	}

	sess, err := svc.Ingest(context.Background(), apiKey, filepath.Base(docPath), string(data))
	if err != nil {
		log.Fatal().Err(err).Msg("ingest failed")
	}

	m := tui.New(svc, apiKey, sess, topK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal().Err(err).Msg("tui failed")
	}
}
