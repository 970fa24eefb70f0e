package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDocumentNotFound is returned by Get when no record exists.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepo stores ingestion records.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Record inserts or replaces the record for doc.Filename.
// A zero IngestedAt is stamped with the current time.
func (r *DocumentRepo) Record(ctx context.Context, doc DocumentRecord) error {
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (filename, source, sha256, pages, chunks, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET
			source = excluded.source,
			sha256 = excluded.sha256,
			pages = excluded.pages,
			chunks = excluded.chunks,
			ingested_at = excluded.ingested_at`,
		doc.Filename, doc.Source, doc.SHA256, doc.Pages, doc.Chunks, doc.IngestedAt.UTC(),
	)
	return err
}

// Get returns the record for filename.
func (r *DocumentRepo) Get(ctx context.Context, filename string) (DocumentRecord, error) {
	var doc DocumentRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT filename, source, sha256, pages, chunks, ingested_at FROM documents WHERE filename = ?",
		filename,
	).Scan(&doc.Filename, &doc.Source, &doc.SHA256, &doc.Pages, &doc.Chunks, &doc.IngestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentRecord{}, ErrDocumentNotFound
	}
	if err != nil {
		return DocumentRecord{}, err
	}
	return doc, nil
}

// List returns all records ordered by filename.
func (r *DocumentRepo) List(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT filename, source, sha256, pages, chunks, ingested_at FROM documents ORDER BY filename",
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.Filename, &doc.Source, &doc.SHA256, &doc.Pages, &doc.Chunks, &doc.IngestedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}
