package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 1

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS sources (
		  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		  title              TEXT NOT NULL,
		  url                TEXT UNIQUE,
		  external_id        TEXT,
		  summary            TEXT,
		  status             TEXT NOT NULL DEFAULT 'DOWNLOADED'
		                     CHECK (status IN ('DOWNLOADED', 'SENT_TO_REMOTE_SUMMARIZER', 'SENT_TO_REFERENCE_MANAGER', 'COMPLETED')),
		  remote_document_id TEXT,
		  reference_item_id  TEXT,
		  created_at         INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sources_title_summarized
		ON sources(title)
		WHERE summary IS NOT NULL;

		CREATE INDEX IF NOT EXISTS idx_sources_status
		ON sources(status);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}
