// Package bootstrap wires the collaborators shared by the API server and the ingest CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"coach-ai/internal/chunker"
	"coach-ai/internal/config"
	"coach-ai/internal/document"
	"coach-ai/internal/ingest"
	"coach-ai/internal/ledger"
	"coach-ai/internal/llm"
	"coach-ai/internal/storage"
	"coach-ai/internal/vectorstore"
)

// NewLogger builds the process logger from the configured level and format.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Services holds the opened stores and clients.
type Services struct {
	Config    *config.Config
	Store     vectorstore.VectorStore
	DB        *sql.DB
	Documents *storage.DocumentRepo
	Embedder  *llm.EmbeddingsClient
}

// Open fetches the vector store archive when one is configured, then opens the
// vector store and the ingestion records database.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	if cfg.VectorStore == config.VectorStoreSQLite {
		fetched, err := vectorstore.FetchArchive(ctx, cfg.VectorDBURL, cfg.VectorDBDir)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch vector store archive: %w", err)
		}
		if fetched {
			slog.InfoContext(ctx, "Vector store archive extracted", "dir", cfg.VectorDBDir)
		}
	}

	if err := os.MkdirAll(cfg.VectorDBDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector db directory: %w", err)
	}

	var store vectorstore.VectorStore
	switch cfg.VectorStore {
	case config.VectorStoreQdrant:
		qs, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		store = qs
	default:
		ss, err := vectorstore.NewSQLiteStore(cfg.VectorDBDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		store = ss
	}

	dbPath := filepath.Join(cfg.VectorDBDir, storage.DefaultFile)
	db, err := storage.New(dbPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Stores opened",
		"backend", cfg.VectorStore,
		"collection", cfg.QdrantCollection,
		"documents_db", dbPath,
	)

	return &Services{
		Config:    cfg,
		Store:     store,
		DB:        db,
		Documents: storage.NewDocumentRepo(db),
		Embedder:  llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimensions),
	}, nil
}

// IngestOptions overrides the configured ingestion inputs. Empty fields keep the config values.
type IngestOptions struct {
	DocsDir    string
	LedgerPath string
	Markdown   bool
}

// NewPipeline builds an ingestion pipeline over the opened stores.
func (s *Services) NewPipeline(opts IngestOptions) (*ingest.Pipeline, error) {
	docsDir := opts.DocsDir
	if docsDir == "" {
		docsDir = s.Config.DocsDir
	}
	ledgerPath := opts.LedgerPath
	if ledgerPath == "" {
		ledgerPath = s.Config.LedgerPath
	}

	processed, err := ledger.Open(ledgerPath)
	if err != nil {
		return nil, err
	}

	registry := document.NewRegistry()
	if opts.Markdown || s.Config.IngestMarkdown {
		registry.Register(".md", document.NewMarkdownLoader())
	}

	return ingest.NewPipeline(
		registry,
		processed,
		chunker.NewSplitter(s.Config.ChunkSize, s.Config.ChunkOverlap),
		s.Embedder,
		s.Store,
		s.Documents,
		ingest.Options{
			DocsDir:    docsDir,
			Collection: s.Config.QdrantCollection,
			VectorSize: s.Config.EmbeddingDimensions,
			BatchSize:  s.Config.EmbedBatchSize,
		},
	), nil
}

// Close releases the stores.
func (s *Services) Close() error {
	return errors.Join(s.Store.Close(), s.DB.Close())
}
