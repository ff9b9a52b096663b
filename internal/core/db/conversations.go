package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a conversation id matches nothing
var ErrNotFound = errors.New("conversation not found")

// ErrAmbiguousID is returned when an id prefix matches more than one conversation
var ErrAmbiguousID = errors.New("ambiguous conversation id")

// Conversation is one catalogued conversation. The thread is never stored;
// callers re-extract it from RawJSON.
type Conversation struct {
	ConversationID string
	Title          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	MessageCount   int
	AssistantCount int
	TextContent    string
	RawJSON        []byte
	SourceFile     string
}

// ListFilter narrows ListConversations. Zero values mean no filter.
type ListFilter struct {
	Query string // full-text query over title and thread text
	Since time.Time
	Limit int
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func upsertConversation(ex execer, c Conversation) error {
	_, err := ex.Exec(`
		INSERT INTO conversations
		(conversation_id, title, created_at, updated_at, message_count, assistant_count, text_content, raw_json, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count,
			assistant_count = excluded.assistant_count,
			text_content = excluded.text_content,
			raw_json = excluded.raw_json,
			source_file = excluded.source_file,
			imported_at = CURRENT_TIMESTAMP
	`, c.ConversationID, c.Title, unixOrZero(c.CreatedAt), unixOrZero(c.UpdatedAt),
		c.MessageCount, c.AssistantCount, c.TextContent, string(c.RawJSON), c.SourceFile)
	if err != nil {
		return fmt.Errorf("upsert conversation %s: %w", c.ConversationID, err)
	}
	return nil
}

// UpsertConversation inserts or replaces a single conversation
func (db *DB) UpsertConversation(c Conversation) error {
	return upsertConversation(db.conn, c)
}

// UpsertConversations writes all conversations in one transaction
func (db *DB) UpsertConversations(convs []Conversation) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range convs {
		if err := upsertConversation(tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListConversations returns conversations newest first, without raw JSON
func (db *DB) ListConversations(f ListFilter) ([]Conversation, error) {
	query := `
		SELECT c.conversation_id, COALESCE(c.title, ''), c.created_at, c.updated_at,
		       c.message_count, c.assistant_count, COALESCE(c.source_file, '')
		FROM conversations c
		WHERE 1=1`

	args := []interface{}{}
	if q := ftsQuery(f.Query); q != "" {
		query += " AND c.id IN (SELECT rowid FROM conversations_fts WHERE conversations_fts MATCH ?)"
		args = append(args, q)
	}
	if !f.Since.IsZero() {
		query += " AND c.updated_at >= ?"
		args = append(args, f.Since.Unix())
	}

	query += " ORDER BY c.updated_at DESC, c.conversation_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		var created, updated int64
		if err := rows.Scan(&c.ConversationID, &c.Title, &created, &updated,
			&c.MessageCount, &c.AssistantCount, &c.SourceFile); err != nil {
			return nil, err
		}
		c.CreatedAt = fromUnix(created)
		c.UpdatedAt = fromUnix(updated)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation loads one conversation including its raw JSON.
// id may be a unique prefix of the conversation id.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	fullID, err := db.ResolveConversationID(id)
	if err != nil {
		return nil, err
	}

	var c Conversation
	var created, updated int64
	var raw string
	err = db.conn.QueryRow(`
		SELECT conversation_id, COALESCE(title, ''), created_at, updated_at,
		       message_count, assistant_count, COALESCE(text_content, ''), raw_json, COALESCE(source_file, '')
		FROM conversations WHERE conversation_id = ?
	`, fullID).Scan(&c.ConversationID, &c.Title, &created, &updated,
		&c.MessageCount, &c.AssistantCount, &c.TextContent, &raw, &c.SourceFile)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(created)
	c.UpdatedAt = fromUnix(updated)
	c.RawJSON = []byte(raw)
	return &c, nil
}

// ResolveConversationID expands a unique prefix to a full conversation id
func (db *DB) ResolveConversationID(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}

	var exact string
	err := db.conn.QueryRow(`SELECT conversation_id FROM conversations WHERE conversation_id = ?`, prefix).Scan(&exact)
	if err == nil {
		return exact, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	rows, err := db.conn.Query(`
		SELECT conversation_id FROM conversations
		WHERE substr(conversation_id, 1, ?) = ?
		LIMIT 2
	`, len(prefix), prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
	}
}

// ftsQuery quotes each term so user input cannot break FTS5 syntax
func ftsQuery(q string) string {
	var terms []string
	for _, t := range strings.Fields(q) {
		terms = append(terms, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
