package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger is the sync utility's SQLite record of uploaded recordings. It
// serves two purposes: deduplicating filesystem events for files already
// shipped, and finding recordings created while the watcher was down.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (and if needed initializes) the ledger database.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		object_key TEXT NOT NULL UNIQUE,
		size_bytes INTEGER NOT NULL,
		duration_sec REAL,
		transmission_id INTEGER,
		uploaded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %v", err)
	}

	return &Ledger{db: db}, nil
}

// Has reports whether an object key was already uploaded.
func (l *Ledger) Has(objectKey string) (bool, error) {
	var n int
	err := l.db.QueryRow(`SELECT COUNT(1) FROM uploads WHERE object_key = ?`, objectKey).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %v", err)
	}
	return n > 0, nil
}

// Record marks an object key as uploaded.
func (l *Ledger) Record(objectKey string, sizeBytes int64, durationSec *float64, transmissionID int64) error {
	_, err := l.db.Exec(
		`INSERT OR REPLACE INTO uploads (object_key, size_bytes, duration_sec, transmission_id, uploaded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		objectKey, sizeBytes, durationSec, transmissionID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("ledger insert: %v", err)
	}
	return nil
}

// Count returns the number of recorded uploads.
func (l *Ledger) Count() (int64, error) {
	var n int64
	if err := l.db.QueryRow(`SELECT COUNT(1) FROM uploads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger count: %v", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
