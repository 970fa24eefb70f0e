package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vector store backends.
const (
	VectorStoreSQLite = "sqlite"
	VectorStoreQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL          string
	LLMModelName        string
	LLMAPIKey           string
	LLMTemperature      float32
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingDimensions int
	EmbedBatchSize      int

	DocsDir        string
	LedgerPath     string
	IngestMarkdown bool
	IngestOnStart  bool
	ChunkSize      int
	ChunkOverlap   int

	VectorStore      string
	VectorDBDir      string
	VectorDBURL      string
	QdrantURL        string
	QdrantCollection string
	RetrievalK       int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// fileConfig is the optional YAML overlay. Zero values leave defaults untouched.
type fileConfig struct {
	LLM struct {
		BaseURL     string   `yaml:"base_url"`
		Model       string   `yaml:"model"`
		Temperature *float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Embedding struct {
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		Dimensions int    `yaml:"dimensions"`
		BatchSize  int    `yaml:"batch_size"`
	} `yaml:"embedding"`
	Ingest struct {
		DocsDir      string `yaml:"docs_dir"`
		LedgerPath   string `yaml:"ledger_path"`
		Markdown     *bool  `yaml:"markdown"`
		OnStart      *bool  `yaml:"on_start"`
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap *int   `yaml:"chunk_overlap"`
	} `yaml:"ingest"`
	VectorStore struct {
		Type       string `yaml:"type"`
		Dir        string `yaml:"dir"`
		ArchiveURL string `yaml:"archive_url"`
		QdrantURL  string `yaml:"qdrant_url"`
		Collection string `yaml:"collection"`
		K          int    `yaml:"k"`
	} `yaml:"vector_store"`
	API struct {
		Port string `yaml:"port"`
	} `yaml:"api"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads configuration and returns a Config struct.
// Sources, lowest precedence first: built-in defaults, the YAML file named by
// COACH_CONFIG (or ./config.yaml when present), a .env file, and the process
// environment. Environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := defaults()

	yamlPath := os.Getenv("COACH_CONFIG")
	if yamlPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			yamlPath = "config.yaml"
		}
	}
	if yamlPath != "" {
		if err := applyFile(cfg, yamlPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv loads .env from the working directory or the closest parent that has one.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		_ = godotenv.Load()
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func defaults() *Config {
	return &Config{
		LLMBaseURL:          "https://api.openai.com",
		LLMModelName:        "gpt-4",
		LLMTemperature:      0,
		EmbeddingModelName:  "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		EmbedBatchSize:      64,
		DocsDir:             "docs",
		LedgerPath:          "processed_files.txt",
		ChunkSize:           1000,
		ChunkOverlap:        150,
		VectorStore:         VectorStoreSQLite,
		VectorDBDir:         "vector_db",
		QdrantURL:           "http://localhost:6333",
		QdrantCollection:    "coach",
		RetrievalK:          10,
		APIPort:             "5000",
		LogLevel:            slog.LevelInfo,
		LogFormat:           "text",
	}
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMModelName, fc.LLM.Model)
	if fc.LLM.Temperature != nil {
		cfg.LLMTemperature = *fc.LLM.Temperature
	}
	setString(&cfg.EmbeddingBaseURL, fc.Embedding.BaseURL)
	setString(&cfg.EmbeddingModelName, fc.Embedding.Model)
	setInt(&cfg.EmbeddingDimensions, fc.Embedding.Dimensions)
	setInt(&cfg.EmbedBatchSize, fc.Embedding.BatchSize)
	setString(&cfg.DocsDir, fc.Ingest.DocsDir)
	setString(&cfg.LedgerPath, fc.Ingest.LedgerPath)
	if fc.Ingest.Markdown != nil {
		cfg.IngestMarkdown = *fc.Ingest.Markdown
	}
	if fc.Ingest.OnStart != nil {
		cfg.IngestOnStart = *fc.Ingest.OnStart
	}
	setInt(&cfg.ChunkSize, fc.Ingest.ChunkSize)
	if fc.Ingest.ChunkOverlap != nil {
		cfg.ChunkOverlap = *fc.Ingest.ChunkOverlap
	}
	setString(&cfg.VectorStore, fc.VectorStore.Type)
	setString(&cfg.VectorDBDir, fc.VectorStore.Dir)
	setString(&cfg.VectorDBURL, fc.VectorStore.ArchiveURL)
	setString(&cfg.QdrantURL, fc.VectorStore.QdrantURL)
	setString(&cfg.QdrantCollection, fc.VectorStore.Collection)
	setInt(&cfg.RetrievalK, fc.VectorStore.K)
	setString(&cfg.APIPort, fc.API.Port)
	if fc.Log.Level != "" {
		level, err := parseLevel(fc.Log.Level)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	setString(&cfg.LogFormat, fc.Log.Format)
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.LLMAPIKey = getEnv("OPENAI_API_KEY", getEnv("LLM_API_KEY", ""))
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMModelName = getEnv("LLM_MODEL", cfg.LLMModelName)
	cfg.EmbeddingBaseURL = getEnv("EMBEDDING_BASE_URL", cfg.EmbeddingBaseURL)
	cfg.EmbeddingModelName = getEnv("EMBEDDING_MODEL", cfg.EmbeddingModelName)
	cfg.DocsDir = getEnv("DOCS_DIR", cfg.DocsDir)
	cfg.LedgerPath = getEnv("LEDGER_PATH", cfg.LedgerPath)
	cfg.VectorStore = strings.ToLower(getEnv("VECTOR_STORE", cfg.VectorStore))
	cfg.VectorDBDir = getEnv("VECTOR_DB_DIR", cfg.VectorDBDir)
	cfg.VectorDBURL = getEnv("VECTOR_DB_URL", cfg.VectorDBURL)
	cfg.QdrantURL = getEnv("QDRANT_URL", cfg.QdrantURL)
	cfg.QdrantCollection = getEnv("QDRANT_COLLECTION", cfg.QdrantCollection)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("LLM_TEMPERATURE must be a valid number: %w", err)
		}
		cfg.LLMTemperature = float32(t)
	}
	bools := []struct {
		key string
		dst *bool
	}{
		{"INGEST_MARKDOWN", &cfg.IngestMarkdown},
		{"INGEST_ON_START", &cfg.IngestOnStart},
	}
	for _, it := range bools {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", it.key, err)
		}
		*it.dst = b
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"EMBEDDING_DIMENSIONS", &cfg.EmbeddingDimensions},
		{"EMBED_BATCH_SIZE", &cfg.EmbedBatchSize},
		{"CHUNK_SIZE", &cfg.ChunkSize},
		{"CHUNK_OVERLAP", &cfg.ChunkOverlap},
		{"RETRIEVAL_K", &cfg.RetrievalK},
	}
	for _, it := range ints {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a valid integer: %w", it.key, err)
		}
		*it.dst = n
	}

	// Embeddings usually live on the same provider as chat.
	if cfg.EmbeddingBaseURL == "" {
		cfg.EmbeddingBaseURL = cfg.LLMBaseURL
	}
	return nil
}

func (c *Config) validate() error {
	if c.LLMAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("EMBEDDING_DIMENSIONS must be greater than 0")
	}
	if c.ChunkSize <= 0 {
		return errors.New("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, %d)", c.ChunkSize)
	}
	if c.RetrievalK <= 0 {
		return errors.New("RETRIEVAL_K must be greater than 0")
	}
	if c.EmbedBatchSize <= 0 {
		return errors.New("EMBED_BATCH_SIZE must be greater than 0")
	}
	switch c.VectorStore {
	case VectorStoreSQLite, VectorStoreQdrant:
	default:
		return fmt.Errorf("VECTOR_STORE must be %q or %q, got %q", VectorStoreSQLite, VectorStoreQdrant, c.VectorStore)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
