package db

import "fmt"

// ImportStatus values match the import_log status check constraint
const (
	ImportSuccess = "success"
	ImportPartial = "partial"
	ImportFailed  = "failed"
)

type ImportRecord struct {
	FilePath      string
	FileHash      string
	Conversations int
	Messages      int
	Status        string
	Error         string
}

// IsImported reports whether a file with this hash was already imported successfully
func (db *DB) IsImported(fileHash string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM import_log
		WHERE file_hash = ? AND status = 'success'
	`, fileHash).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LogImport appends an entry to the import log
func (db *DB) LogImport(r ImportRecord) error {
	status := r.Status
	if status == "" {
		status = ImportSuccess
	}
	var errMsg interface{}
	if r.Error != "" {
		errMsg = r.Error
	}
	_, err := db.conn.Exec(`
		INSERT INTO import_log (file_path, file_hash, conversations_imported, messages_imported, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.FilePath, r.FileHash, r.Conversations, r.Messages, status, errMsg)
	if err != nil {
		return fmt.Errorf("log import: %w", err)
	}
	return nil
}
