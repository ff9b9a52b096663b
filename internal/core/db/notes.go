package db

import (
	"fmt"
	"time"
)

// SavedNote is a note written to the vault for a pair
type SavedNote struct {
	PairID         string
	ConversationID string
	Path           string
	SavedAt        time.Time
}

// RecordSavedNote logs a written note. A pair saved twice has two rows.
func (db *DB) RecordSavedNote(pairID, conversationID, path string, savedAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO saved_notes (pair_id, conversation_id, path, saved_at)
		VALUES (?, ?, ?, ?)
	`, pairID, conversationID, path, savedAt.Unix())
	if err != nil {
		return fmt.Errorf("record saved note: %w", err)
	}
	return nil
}

// SavedNotes returns the notes written for a conversation, oldest first.
// An empty conversationID returns every note.
func (db *DB) SavedNotes(conversationID string) ([]SavedNote, error) {
	query := `SELECT pair_id, conversation_id, path, saved_at FROM saved_notes`
	args := []interface{}{}
	if conversationID != "" {
		query += ` WHERE conversation_id = ?`
		args = append(args, conversationID)
	}
	query += ` ORDER BY saved_at, id`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []SavedNote
	for rows.Next() {
		var n SavedNote
		var savedAt int64
		if err := rows.Scan(&n.PairID, &n.ConversationID, &n.Path, &savedAt); err != nil {
			return nil, err
		}
		n.SavedAt = time.Unix(savedAt, 0)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
