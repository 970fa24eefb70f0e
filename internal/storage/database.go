package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultFile is the ingestion records database kept next to the vector index.
const DefaultFile = "documents.db"

// New opens a SQLite database connection at the given path.
// Foreign keys are enabled through the DSN so every pooled connection has them.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			filename TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			pages INTEGER NOT NULL DEFAULT 0,
			chunks INTEGER NOT NULL DEFAULT 0,
			ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_ingested_at ON documents(ingested_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
