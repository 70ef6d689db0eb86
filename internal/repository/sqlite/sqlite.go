package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS face_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		age INTEGER,
		gender TEXT,
		race TEXT,
		image_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_face_data_timestamp ON face_data(timestamp);
	`

// DB opens a fresh SQLite connection for every operation and closes it afterwards.
// No handle is shared between goroutines; the mutex only orders Reset against
// concurrent work on the same file.
type DB struct {
	path string
	mu   sync.RWMutex
}

// New does not touch the disk; call Initialize before use.
func New(dbPath string) *DB {
	return &DB{path: dbPath}
}

func (db *DB) Path() string {
	return db.path
}

// Initialize creates the parent directory and the table if absent. It is idempotent.
func (db *DB) Initialize() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if dir := filepath.Dir(db.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return db.exec(func(conn *sql.DB) error {
		if _, err := conn.Exec(schema); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		return nil
	})
}

// Reset deletes the database file. A later Initialize starts from scratch.
func (db *DB) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var errs []error
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(db.path + suffix); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", db.path+suffix, err))
		}
	}
	return errors.Join(errs...)
}

// withConn runs fn on a short-lived connection. Any number may run at once;
// SQLite's busy timeout serialises writers at the file level.
func (db *DB) withConn(fn func(conn *sql.DB) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.exec(fn)
}

func (db *DB) exec(fn func(conn *sql.DB) error) error {
	conn, err := sql.Open("sqlite3", db.path+"?_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	conn.SetMaxOpenConns(1)
	return fn(conn)
}
