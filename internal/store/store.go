// Package store provides a SQLite-backed ingestion history for ragsearch.
// Every successful document ingestion is recorded so operators can audit
// what went into a collection and when. Records survive restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Ingestion is one recorded document ingestion.
type Ingestion struct {
	// FilePath is the ingested document's path as supplied by the caller.
	FilePath string
	// Collection is the vector index collection the chunks were written to.
	Collection string
	// Chunks is the number of chunks produced from the document.
	Chunks int
	// CreatedAt is when the ingestion completed.
	CreatedAt time.Time
}

// HistoryStore persists and retrieves ingestion records. Implementations
// must be safe for concurrent use.
type HistoryStore interface {
	// Append records one completed ingestion.
	Append(ctx context.Context, filePath, collection string, chunks int) error
	// Recent returns up to n most recent ingestions, newest-first.
	Recent(ctx context.Context, n int) ([]Ingestion, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a HistoryStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the ingestion history database.
// It resolves to ~/.ragsearch/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragsearch")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path    TEXT    NOT NULL,
    collection   TEXT    NOT NULL,
    chunks       INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_ingestions_created
    ON ingestions (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append records one completed ingestion.
func (s *SQLiteStore) Append(ctx context.Context, filePath, collection string, chunks int) error {
	const q = `INSERT INTO ingestions (file_path, collection, chunks, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, filePath, collection, chunks, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns up to n most recent ingestions, newest-first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Ingestion, error) {
	const q = `
SELECT file_path, collection, chunks, created_at
FROM   ingestions
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var recs []Ingestion
	for rows.Next() {
		var rec Ingestion
		var ts int64
		if err := rows.Scan(&rec.FilePath, &rec.Collection, &rec.Chunks, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		rec.CreatedAt = time.Unix(ts, 0)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return recs, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
