package tracking

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

// NewDatabase opens the SQLite database at dbPath and applies the schema.
// ":memory:" opens a private in-memory database.
func NewDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA user_version = 1",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS decode_events (
    id              INTEGER PRIMARY KEY,
    timestamp       INTEGER NOT NULL,
    path            TEXT    NOT NULL,
    operation       TEXT    NOT NULL,
    outcome         TEXT    NOT NULL CHECK (outcome IN ('ok', 'error')),
    error_kind      TEXT,
    error_message   TEXT,
    sample_rate     INTEGER,
    channels        INTEGER,
    bits_per_sample INTEGER,
    data_bytes      INTEGER,
    chunk_count     INTEGER
);

CREATE TABLE IF NOT EXISTS event_anomalies (
    id          INTEGER PRIMARY KEY,
    event_id    INTEGER NOT NULL REFERENCES decode_events(id) ON DELETE CASCADE,
    kind        TEXT    NOT NULL,
    tag         TEXT    NOT NULL,
    byte_offset INTEGER NOT NULL,
    detail      TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON decode_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_events_operation ON decode_events(operation);
CREATE INDEX IF NOT EXISTS idx_events_failures ON decode_events(error_kind) WHERE outcome = 'error';
CREATE INDEX IF NOT EXISTS idx_anomalies_event ON event_anomalies(event_id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetDatabasePath returns the XDG cache path for the history database, creating its directory
func GetDatabasePath() (string, error) {
	dbDir := filepath.Join(xdg.CacheHome, "riffle")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return filepath.Join(dbDir, "history.db"), nil
}
