package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const snapshotKey = "history"

// SQLiteStorage persists the snapshot in a single-key table of an
// embedded SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite storage: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite storage: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Read returns the stored snapshot or ErrNotFound.
func (s *SQLiteStorage) Read() ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE key = ?`, snapshotKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Write upserts the snapshot row.
func (s *SQLiteStorage) Write(data []byte) error {
	_, err := s.db.Exec(`INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snapshotKey, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
