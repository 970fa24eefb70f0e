package vectorstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"coach-ai/internal/contextutil"
)

func init() {
	sqlite_vec.Auto()
}

// IndexFile is the database file SQLiteStore keeps inside its directory.
const IndexFile = "index.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
    name        TEXT PRIMARY KEY,
    vector_size INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    point_id   TEXT NOT NULL,
    text       TEXT NOT NULL DEFAULT '',
    metadata   TEXT NOT NULL DEFAULT '{}',
    UNIQUE (collection, point_id)
);
`

var collectionName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SQLiteStore implements VectorStore on a local SQLite file with the sqlite-vec extension.
// Each collection gets its own vec0 table holding cosine-distance embeddings keyed by chunk row id.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the index inside dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector db directory: %w", err)
	}

	dbPath := filepath.Join(dir, IndexFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping vector db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init vector db schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func vecTable(collection string) (string, error) {
	if !collectionName.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return "vec_" + collection, nil
}

// CollectionExists checks if a collection exists.
func (s *SQLiteStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.vectorSize(ctx, collection)
	if errors.Is(err, ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) vectorSize(ctx context.Context, collection string) (int, error) {
	var size int
	err := s.db.QueryRowContext(ctx, "SELECT vector_size FROM collections WHERE name = ?", collection).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return size, nil
}

// EnsureCollection ensures a collection exists with the specified vector size.
// If the collection exists, validates that the vector size matches.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	table, err := vecTable(collection)
	if err != nil {
		return err
	}
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}

	actual, err := s.vectorSize(ctx, collection)
	if err == nil {
		if actual != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, actual)
		}
		logger.DebugContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize)
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ddl := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(chunk_id INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)",
		table, vectorSize,
	)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO collections (name, vector_size) VALUES (?, ?)", collection, vectorSize); err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}

	logger.InfoContext(ctx, "collection created", "collection", collection, "vector_size", vectorSize)
	return nil
}

// Upsert inserts or updates points in the collection.
// Points are matched on ID; an existing point gets its text, metadata and vector replaced.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	table, err := vecTable(collection)
	if err != nil {
		return err
	}
	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, point := range points {
		if len(point.Vec) != size {
			return fmt.Errorf("point %s has vector size %d, expected %d", point.ID, len(point.Vec), size)
		}

		meta, err := json.Marshal(point.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for point %s: %w", point.ID, err)
		}
		if point.Meta == nil {
			meta = []byte("{}")
		}
		text, _ := point.Meta["text"].(string)

		var rowID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO chunks (collection, point_id, text, metadata) VALUES (?, ?, ?, ?)
			 ON CONFLICT(collection, point_id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata
			 RETURNING id`,
			collection, point.ID, text, string(meta),
		).Scan(&rowID)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", point.ID, err)
		}

		blob, err := sqlite_vec.SerializeFloat32(point.Vec)
		if err != nil {
			return fmt.Errorf("failed to serialize vector for point %s: %w", point.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE chunk_id = ?", rowID); err != nil {
			return fmt.Errorf("failed to replace vector for point %s: %w", point.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" (chunk_id, embedding) VALUES (?, ?)", rowID, blob); err != nil {
			return fmt.Errorf("failed to insert vector for point %s: %w", point.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to commit points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search returns up to k points nearest to query. Score is 1 - cosine distance.
func (s *SQLiteStore) Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	table, err := vecTable(collection)
	if err != nil {
		return nil, err
	}
	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != size {
		return nil, fmt.Errorf("query vector size %d, expected %d", len(query), size)
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.point_id, v.distance, c.metadata
		FROM `+table+` v
		JOIN chunks c ON c.id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	results := make([]SearchResult, 0, k)
	for rows.Next() {
		var (
			pointID  string
			distance float64
			rawMeta  string
		)
		if err := rows.Scan(&pointID, &distance, &rawMeta); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		meta, err := decodeMeta(rawMeta)
		if err != nil {
			return nil, fmt.Errorf("failed to decode metadata for point %s: %w", pointID, err)
		}

		results = append(results, SearchResult{
			PointID: pointID,
			Score:   float32(1 - distance),
			Meta:    meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	logger.DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Count returns the number of points in the collection. A missing collection counts zero.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// Delete removes points by their IDs. Unknown IDs are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, ids []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	table, err := vecTable(collection)
	if err != nil {
		return err
	}
	if _, err := s.vectorSize(ctx, collection); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	deleted := 0
	for _, id := range ids {
		var rowID int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM chunks WHERE collection = ? AND point_id = ?", collection, id).Scan(&rowID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up point %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE chunk_id = ?", rowID); err != nil {
			return fmt.Errorf("failed to delete vector for point %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", rowID); err != nil {
			return fmt.Errorf("failed to delete point %s: %w", id, err)
		}
		deleted++
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", collection, "count", len(ids), "error", err)
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", collection, "count", deleted)
	return nil
}

// decodeMeta restores metadata from JSON, keeping whole numbers as int64 like the Qdrant payload does.
func decodeMeta(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var meta map[string]any
	if err := dec.Decode(&meta); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = make(map[string]any)
	}
	for k, v := range meta {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := num.Int64(); err == nil {
			meta[k] = i
		} else if f, err := num.Float64(); err == nil {
			meta[k] = f
		}
	}
	return meta, nil
}
