package storage

import "time"

// DocumentRecord describes one ingested source file.
type DocumentRecord struct {
	Filename   string // Ledger name, unique per docs folder
	Source     string // Path the file was loaded from
	SHA256     string // Hex digest of the file content
	Pages      int
	Chunks     int // Number of chunks written to the vector store
	IngestedAt time.Time
}
