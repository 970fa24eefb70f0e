package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coach-ai/internal/bootstrap"
	"coach-ai/internal/config"
	"coach-ai/internal/http"
	"coach-ai/internal/llm"
	"coach-ai/internal/rag"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers fitness and wellness questions from a library of ingested PDF guides.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Coach AI API
//   description: |
//     Retrieval-augmented fitness coach. Questions are tailored with an optional user
//     profile and answered from the closest chunks of the ingested documents.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := bootstrap.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize stores: %v", err)
	}
	defer func() {
		_ = svc.Close()
	}()

	checkModel(ctx, cfg)

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	ragEngine := rag.NewEngine(svc.Embedder, svc.Store, llmClient, rag.Options{
		Collection:  cfg.QdrantCollection,
		K:           cfg.RetrievalK,
		Model:       cfg.LLMModelName,
		Temperature: cfg.LLMTemperature,
	})
	slog.Info("RAG engine initialized", "collection", cfg.QdrantCollection, "k", cfg.RetrievalK)

	router := http.NewRouter(&http.Deps{
		RAGEngine:   ragEngine,
		VectorStore: svc.Store,
		Collection:  cfg.QdrantCollection,
	})

	if cfg.IngestOnStart {
		pipeline, err := svc.NewPipeline(bootstrap.IngestOptions{})
		if err != nil {
			log.Fatalf("Failed to create ingestion pipeline: %v", err)
		}
		// Start ingestion in background after router is ready
		go func() {
			slog.Info("Starting background ingestion", "docs", cfg.DocsDir)
			result, err := pipeline.Run(ctx)
			if err != nil {
				slog.Error("Ingestion completed with errors", "error", err)
				return
			}
			slog.Info("Ingestion completed successfully", "loaded", result.Loaded, "chunks", result.Chunks)
		}()
	}

	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}

// checkModel warns when the provider does not list the configured chat model.
func checkModel(ctx context.Context, cfg *config.Config) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ok, err := llm.NewModelCatalog(cfg.LLMBaseURL, cfg.LLMAPIKey).HasModel(checkCtx, cfg.LLMModelName)
	if err != nil {
		slog.Warn("Could not list provider models", "error", err)
		return
	}
	if !ok {
		slog.Warn("Configured chat model not listed by provider", "model", cfg.LLMModelName)
	}
}
