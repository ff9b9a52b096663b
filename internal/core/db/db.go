package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// catalogPragmas are applied to every connection. WAL lets the TUI read
// while an import or the MCP server writes.
const catalogPragmas = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// DB is the local catalog of imported conversations, backed by SQLite
type DB struct {
	conn *sql.DB
}

// New opens the catalog at dbPath, creating the file and its directory on
// first use, and brings the schema up to date.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+catalogPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// one connection: sqlite serializes writers anyway
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}
	for _, step := range []struct {
		name string
		run  func() error
	}{
		{"initialize schema", db.initSchema},
		{"migrate catalog", db.migrate},
	} {
		if err := step.run(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to %s: %w", step.name, err)
		}
	}

	return db, nil
}

// Close closes the catalog
func (db *DB) Close() error {
	return db.conn.Close()
}

// QueryRow runs a single-row query against the catalog
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
