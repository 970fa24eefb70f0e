// Package ingest turns a folder of source documents into vector store points.
package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingest.go -package=mocks coach-ai/internal/ingest Embedder,DocumentStore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"coach-ai/internal/chunker"
	"coach-ai/internal/contextutil"
	"coach-ai/internal/document"
	"coach-ai/internal/ledger"
	"coach-ai/internal/storage"
	"coach-ai/internal/vectorstore"
)

// DefaultBatchSize is the number of chunks embedded per provider call.
const DefaultBatchSize = 64

// chunkNamespace scopes chunk point IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("coach-ai/chunks"))

// Embedder produces embeddings for chunk texts.
type Embedder interface {
	EmbedBatched(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

// DocumentStore keeps a record per ingested file.
type DocumentStore interface {
	Record(ctx context.Context, doc storage.DocumentRecord) error
	Get(ctx context.Context, filename string) (storage.DocumentRecord, error)
}

// Options configures a Pipeline.
type Options struct {
	DocsDir    string
	Collection string
	VectorSize int
	BatchSize  int
}

// Pipeline ingests new files from a docs folder.
type Pipeline struct {
	registry   *document.Registry
	ledger     *ledger.Ledger
	splitter   *chunker.Splitter
	embedder   Embedder
	store      vectorstore.VectorStore
	documents  DocumentStore
	docsDir    string
	collection string
	vectorSize int
	batchSize  int
}

// NewPipeline creates a new ingestion pipeline. documents may be nil.
func NewPipeline(
	registry *document.Registry,
	processed *ledger.Ledger,
	splitter *chunker.Splitter,
	embedder Embedder,
	store vectorstore.VectorStore,
	documents DocumentStore,
	opts Options,
) *Pipeline {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		registry:   registry,
		ledger:     processed,
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		documents:  documents,
		docsDir:    opts.DocsDir,
		collection: opts.Collection,
		vectorSize: opts.VectorSize,
		batchSize:  batchSize,
	}
}

// Result summarizes one ingestion run.
type Result struct {
	Scanned int      // Files with a supported extension
	Skipped int      // Files already in the ledger
	Failed  int      // Files that could not be loaded
	Loaded  int      // Files ingested in this run
	Chunks  int      // Chunks written in this run
	Files   []string // Names added to the ledger, in order
	Before  int      // Store count before the run
	After   int      // Store count after the run
	Stats   ChunkStats
}

// ChunkID returns the deterministic point ID for a chunk, so that writing the
// same file again overwrites its points instead of duplicating them.
func ChunkID(filename string, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", filename, index))).String()
}

// Run ingests every supported file in the docs folder that is not yet in the ledger.
// Files that fail to load are logged and left out of the ledger so the next run retries them.
// A file is committed to the ledger only after its chunks are in the store.
// When no new file loads, the store is not modified.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	entries, err := os.ReadDir(p.docsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read docs folder %s: %w", p.docsDir, err)
	}
	logger.InfoContext(ctx, "scanning docs folder", "dir", p.docsDir, "extensions", p.registry.Extensions())

	result := &Result{}
	result.Before, err = p.count(ctx)
	if err != nil {
		return nil, err
	}
	result.After = result.Before
	logger.InfoContext(ctx, "vector store count", "collection", p.collection, "chunks", result.Before)

	var lengths []int
	ensured := false
	for _, entry := range entries {
		if entry.IsDir() || !p.registry.Supports(entry.Name()) {
			continue
		}
		result.Scanned++

		name := entry.Name()
		if p.ledger.Contains(name) {
			result.Skipped++
			logger.DebugContext(ctx, "skipping processed file", "file", name)
			continue
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		path := filepath.Join(p.docsDir, name)
		logger.InfoContext(ctx, "loading file", "file", name)
		doc, err := p.registry.Load(ctx, path)
		if err != nil {
			result.Failed++
			logger.ErrorContext(ctx, "failed to process file", "file", name, "error", err)
			continue
		}

		chunks := p.splitter.Split(doc)
		if len(chunks) == 0 {
			logger.WarnContext(ctx, "no text extracted", "file", name)
		}

		if len(chunks) > 0 && !ensured {
			if err := p.store.EnsureCollection(ctx, p.collection, p.vectorSize); err != nil {
				return result, fmt.Errorf("failed to prepare collection: %w", err)
			}
			ensured = true
		}

		if err := p.write(ctx, name, chunks); err != nil {
			return result, fmt.Errorf("failed to ingest %s: %w", name, err)
		}
		if err := p.record(ctx, path, doc, len(chunks)); err != nil {
			return result, fmt.Errorf("failed to record %s: %w", name, err)
		}
		if err := p.ledger.Commit(name); err != nil {
			return result, fmt.Errorf("failed to update ledger: %w", err)
		}

		result.Loaded++
		result.Chunks += len(chunks)
		result.Files = append(result.Files, name)
		for _, c := range chunks {
			lengths = append(lengths, len([]rune(c.Text)))
		}
		logger.InfoContext(ctx, "ingested file", "file", name, "pages", len(doc.Pages), "chunks", len(chunks))
	}

	result.Stats = computeChunkStats(lengths)

	if result.Loaded == 0 {
		logger.InfoContext(ctx, "no new documents to process, vector store unchanged",
			"scanned", result.Scanned, "skipped", result.Skipped, "failed", result.Failed)
		return result, nil
	}

	result.After, err = p.count(ctx)
	if err != nil {
		return result, err
	}

	logger.InfoContext(ctx, "ingestion completed",
		"loaded", result.Loaded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"chunks", result.Chunks,
		"store_before", result.Before,
		"store_after", result.After,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (p *Pipeline) count(ctx context.Context) (int, error) {
	exists, err := p.store.CollectionExists(ctx, p.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return 0, nil
	}
	n, err := p.store.Count(ctx, p.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// write embeds and upserts the chunks of one file, then drops points left over
// from an earlier, longer version of the same file.
func (p *Pipeline) write(ctx context.Context, name string, chunks []chunker.Chunk) error {
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		vecs, err := p.embedder.EmbedBatched(ctx, texts, p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vecs) != len(chunks) {
			return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vecs))
		}

		points := make([]vectorstore.Point, len(chunks))
		for i, c := range chunks {
			meta := make(map[string]any, len(c.Metadata)+1)
			for k, v := range c.Metadata {
				meta[k] = v
			}
			meta["text"] = c.Text
			points[i] = vectorstore.Point{
				ID:   ChunkID(name, c.Index),
				Vec:  vecs[i],
				Meta: meta,
			}
		}

		for start := 0; start < len(points); start += p.batchSize {
			end := min(start+p.batchSize, len(points))
			if err := p.store.Upsert(ctx, p.collection, points[start:end]); err != nil {
				return fmt.Errorf("failed to upsert vectors: %w", err)
			}
		}
	}

	return p.dropStale(ctx, name, len(chunks))
}

func (p *Pipeline) dropStale(ctx context.Context, name string, chunks int) error {
	if p.documents == nil {
		return nil
	}
	prev, err := p.documents.Get(ctx, name)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load previous record: %w", err)
	}
	if prev.Chunks <= chunks {
		return nil
	}

	stale := make([]string, 0, prev.Chunks-chunks)
	for i := chunks; i < prev.Chunks; i++ {
		stale = append(stale, ChunkID(name, i))
	}
	if err := p.store.Delete(ctx, p.collection, stale); err != nil {
		return fmt.Errorf("failed to delete stale chunks: %w", err)
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, path string, doc *document.Document, chunks int) error {
	if p.documents == nil {
		return nil
	}
	digest, err := fileDigest(path)
	if err != nil {
		return err
	}
	return p.documents.Record(ctx, storage.DocumentRecord{
		Filename: doc.Filename,
		Source:   path,
		SHA256:   digest,
		Pages:    len(doc.Pages),
		Chunks:   chunks,
	})
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
