package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coach-ai/internal/config"
	"coach-ai/internal/storage"
	"coach-ai/internal/vectorstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LLMBaseURL:          "http://localhost:0",
		LLMAPIKey:           "sk-test",
		EmbeddingBaseURL:    "http://localhost:0",
		EmbeddingModelName:  "test-embed",
		EmbeddingDimensions: 3,
		EmbedBatchSize:      8,
		DocsDir:             filepath.Join(dir, "docs"),
		LedgerPath:          filepath.Join(dir, "processed_files.txt"),
		ChunkSize:           1000,
		ChunkOverlap:        150,
		VectorStore:         config.VectorStoreSQLite,
		VectorDBDir:         filepath.Join(dir, "vector_db"),
		QdrantCollection:    "coach",
		RetrievalK:          10,
		LogLevel:            slog.LevelInfo,
		LogFormat:           "text",
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  slog.Level
		want   string
	}{
		{name: "text", format: "text", level: slog.LevelInfo, want: "msg=hello"},
		{name: "json", format: "json", level: slog.LevelInfo, want: `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Config{LogFormat: tt.format, LogLevel: tt.level}
			logger := NewLogger(cfg, &buf)

			logger.Debug("hidden")
			logger.Info("hello")

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
			if strings.Contains(buf.String(), "hidden") {
				t.Errorf("debug line logged at info level: %q", buf.String())
			}
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	svc, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() {
		_ = svc.Close()
	}()

	if _, ok := svc.Store.(*vectorstore.SQLiteStore); !ok {
		t.Errorf("Store = %T, want *vectorstore.SQLiteStore", svc.Store)
	}
	for _, name := range []string{vectorstore.IndexFile, storage.DefaultFile} {
		if _, err := os.Stat(filepath.Join(cfg.VectorDBDir, name)); err != nil {
			t.Errorf("expected %s in vector db dir: %v", name, err)
		}
	}

	docs, err := svc.Documents.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("List() = %d records, want 0", len(docs))
	}
}

func TestServices_NewPipeline(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	svc, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() {
		_ = svc.Close()
	}()

	docsDir := filepath.Join(t.TempDir(), "other-docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(docsDir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	pipeline, err := svc.NewPipeline(IngestOptions{DocsDir: docsDir})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Scanned != 0 || result.Loaded != 0 {
		t.Errorf("Run() = %+v, want nothing scanned", result)
	}
}

func TestServices_NewPipeline_BadLedger(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	svc, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() {
		_ = svc.Close()
	}()

	// A directory cannot be read as a ledger.
	if _, err := svc.NewPipeline(IngestOptions{LedgerPath: t.TempDir()}); err == nil {
		t.Error("NewPipeline() expected error for directory ledger path")
	}
}
