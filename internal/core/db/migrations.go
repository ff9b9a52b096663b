package db

import (
	"database/sql"
	"fmt"
)

// migrate applies database migrations for existing databases
func (db *DB) migrate() error {
	// Migration 1: Add source_file to conversations (catalogs created before it was tracked)
	if err := db.migration001AddSourceFile(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: Rebuild the FTS index when it is out of step with conversations
	if err := db.migration002RebuildFTS(); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	return nil
}

func (db *DB) hasColumn(table, column string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&n)
	return n > 0, err
}

// migration001AddSourceFile adds the source_file column if it is missing
func (db *DB) migration001AddSourceFile() error {
	has, err := db.hasColumn("conversations", "source_file")
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	_, err = db.conn.Exec(`ALTER TABLE conversations ADD COLUMN source_file TEXT;`)
	if err != nil {
		return fmt.Errorf("add source_file column: %w", err)
	}
	return nil
}

// migration002RebuildFTS repopulates conversations_fts for rows imported
// before the index existed
func (db *DB) migration002RebuildFTS() error {
	var conversations, indexed int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&conversations); err != nil {
		return err
	}
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM conversations_fts_docsize`).Scan(&indexed)
	if err == sql.ErrNoRows {
		indexed = 0
	} else if err != nil {
		return err
	}

	if conversations == indexed {
		return nil
	}

	_, err = db.conn.Exec(`INSERT INTO conversations_fts(conversations_fts) VALUES ('rebuild');`)
	if err != nil {
		return fmt.Errorf("rebuild conversations_fts: %w", err)
	}
	return nil
}
