package db

import (
	"time"
)

// Stats represents database statistics
type Stats struct {
	TotalConversations int
	TotalMessages      int
	TotalAssistant     int
	SavedNotes         int
	Imports            int
	OldestConversation time.Time
	NewestConversation time.Time
	LastImport         string
	SizeBytes          uint64
}

// GetStats returns comprehensive database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(message_count), 0), COALESCE(SUM(assistant_count), 0)
		FROM conversations
	`).Scan(&stats.TotalConversations, &stats.TotalMessages, &stats.TotalAssistant)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM saved_notes").Scan(&stats.SavedNotes)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(MAX(imported_at), '')
		FROM import_log WHERE status = 'success'
	`).Scan(&stats.Imports, &stats.LastImport)
	if err != nil {
		return nil, err
	}

	// Date range (only if we have conversations)
	if stats.TotalConversations > 0 {
		var minCreated, maxUpdated int64
		err = db.QueryRow(`
			SELECT COALESCE(MIN(NULLIF(created_at, 0)), 0), COALESCE(MAX(updated_at), 0)
			FROM conversations
		`).Scan(&minCreated, &maxUpdated)
		if err != nil {
			return nil, err
		}
		stats.OldestConversation = fromUnix(minCreated)
		stats.NewestConversation = fromUnix(maxUpdated)
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats.SizeBytes = uint64(pageCount * pageSize)

	return stats, nil
}
