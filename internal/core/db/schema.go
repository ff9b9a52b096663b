package db

func (db *DB) initSchema() error {
	schema := `
	-- Conversations table; raw_json is the conversation object from the export
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT UNIQUE NOT NULL,
		title TEXT,
		created_at INTEGER DEFAULT 0,
		updated_at INTEGER DEFAULT 0,
		message_count INTEGER DEFAULT 0,
		assistant_count INTEGER DEFAULT 0,
		text_content TEXT,
		raw_json TEXT NOT NULL,
		source_file TEXT,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_conversation_id ON conversations(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);
	CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);

	-- Import log table
	CREATE TABLE IF NOT EXISTS import_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		file_hash TEXT NOT NULL,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		conversations_imported INTEGER,
		messages_imported INTEGER,
		status TEXT CHECK(status IN ('success', 'partial', 'failed')),
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_import_log_file_hash ON import_log(file_hash);

	-- Notes written to the vault
	CREATE TABLE IF NOT EXISTS saved_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pair_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		path TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saved_notes_conversation_id ON saved_notes(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_saved_notes_pair_id ON saved_notes(pair_id);

	-- Full-text search over titles and thread text
	CREATE VIRTUAL TABLE IF NOT EXISTS conversations_fts USING fts5(
		title,
		text_content,
		content=conversations,
		content_rowid=id,
		tokenize='porter unicode61'
	);

	-- Triggers to keep FTS in sync
	CREATE TRIGGER IF NOT EXISTS conversations_ai AFTER INSERT ON conversations BEGIN
		INSERT INTO conversations_fts(rowid, title, text_content) VALUES (new.id, new.title, new.text_content);
	END;

	CREATE TRIGGER IF NOT EXISTS conversations_ad AFTER DELETE ON conversations BEGIN
		INSERT INTO conversations_fts(conversations_fts, rowid, title, text_content) VALUES ('delete', old.id, old.title, old.text_content);
	END;

	CREATE TRIGGER IF NOT EXISTS conversations_au AFTER UPDATE ON conversations BEGIN
		INSERT INTO conversations_fts(conversations_fts, rowid, title, text_content) VALUES ('delete', old.id, old.title, old.text_content);
		INSERT INTO conversations_fts(rowid, title, text_content) VALUES (new.id, new.title, new.text_content);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}
