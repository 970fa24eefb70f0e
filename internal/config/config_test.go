package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var envVars = []string{
	"OPENAI_API_KEY", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_TEMPERATURE",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS", "EMBED_BATCH_SIZE",
	"DOCS_DIR", "LEDGER_PATH", "INGEST_MARKDOWN", "INGEST_ON_START", "CHUNK_SIZE", "CHUNK_OVERLAP",
	"VECTOR_STORE", "VECTOR_DB_DIR", "VECTOR_DB_URL", "QDRANT_URL", "QDRANT_COLLECTION",
	"RETRIEVAL_K", "API_PORT", "LOG_LEVEL", "LOG_FORMAT", "COACH_CONFIG",
}

// clearEnv unsets all config variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "defaults with api key",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMAPIKey == "sk-test" &&
					cfg.LLMModelName == "gpt-4" &&
					cfg.EmbeddingBaseURL == cfg.LLMBaseURL &&
					cfg.ChunkSize == 1000 &&
					cfg.ChunkOverlap == 150 &&
					cfg.RetrievalK == 10 &&
					cfg.DocsDir == "docs" &&
					cfg.LedgerPath == "processed_files.txt" &&
					cfg.VectorDBDir == "vector_db" &&
					cfg.VectorStore == VectorStoreSQLite &&
					cfg.APIPort == "5000" &&
					cfg.LogLevel == slog.LevelInfo
			},
		},
		{
			name:     "missing api key",
			setupEnv: func(t *testing.T) {},
			wantErr:  true,
		},
		{
			name: "legacy LLM_API_KEY accepted",
			setupEnv: func(t *testing.T) {
				t.Setenv("LLM_API_KEY", "legacy")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMAPIKey == "legacy"
			},
		},
		{
			name: "invalid CHUNK_SIZE",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("CHUNK_SIZE", "big")
			},
			wantErr: true,
		},
		{
			name: "overlap not smaller than size",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("CHUNK_SIZE", "100")
				t.Setenv("CHUNK_OVERLAP", "100")
			},
			wantErr: true,
		},
		{
			name: "zero RETRIEVAL_K",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("RETRIEVAL_K", "0")
			},
			wantErr: true,
		},
		{
			name: "unknown vector store",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("VECTOR_STORE", "chroma")
			},
			wantErr: true,
		},
		{
			name: "qdrant backend and debug logging",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("VECTOR_STORE", "QDRANT")
				t.Setenv("LOG_LEVEL", "debug")
				t.Setenv("LOG_FORMAT", "json")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorStore == VectorStoreQdrant &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json"
			},
		},
		{
			name: "invalid log level",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("LOG_LEVEL", "loud")
			},
			wantErr: true,
		},
		{
			name: "separate embedding base url",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("LLM_BASE_URL", "http://chat:8080")
				t.Setenv("EMBEDDING_BASE_URL", "http://embed:8081")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://chat:8080" && cfg.EmbeddingBaseURL == "http://embed:8081"
			},
		},
		{
			name: "markdown ingestion flag",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("INGEST_MARKDOWN", "true")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.IngestMarkdown && !cfg.IngestOnStart
			},
		},
		{
			name: "ingest on start",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("INGEST_ON_START", "1")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.IngestOnStart
			},
		},
		{
			name: "invalid INGEST_ON_START",
			setupEnv: func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "sk-test")
				t.Setenv("INGEST_ON_START", "sometimes")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "coach.yaml")
	content := `
llm:
  model: gpt-4o-mini
  temperature: 0.2
ingest:
  docs_dir: /srv/docs
  chunk_size: 500
  chunk_overlap: 50
vector_store:
  type: qdrant
  collection: fitness
  k: 4
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("COACH_CONFIG", path)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	// Environment wins over the file.
	t.Setenv("RETRIEVAL_K", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLMModelName != "gpt-4o-mini" {
		t.Errorf("LLMModelName = %v, want gpt-4o-mini", cfg.LLMModelName)
	}
	if cfg.LLMTemperature != 0.2 {
		t.Errorf("LLMTemperature = %v, want 0.2", cfg.LLMTemperature)
	}
	if cfg.DocsDir != "/srv/docs" {
		t.Errorf("DocsDir = %v, want /srv/docs", cfg.DocsDir)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("chunking = %d/%d, want 500/50", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.VectorStore != VectorStoreQdrant || cfg.QdrantCollection != "fitness" {
		t.Errorf("vector store = %s/%s, want qdrant/fitness", cfg.VectorStore, cfg.QdrantCollection)
	}
	if cfg.RetrievalK != 6 {
		t.Errorf("RetrievalK = %d, want 6", cfg.RetrievalK)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want WARN", cfg.LogLevel)
	}
}

func TestLoad_YAMLMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("COACH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing config file, got nil")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("COACH_TEST_VAR", "value")

	if got := getEnv("COACH_TEST_VAR", "default"); got != "value" {
		t.Errorf("getEnv() = %v, want value", got)
	}
	if got := getEnv("COACH_TEST_VAR_UNSET", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want default", got)
	}
}
