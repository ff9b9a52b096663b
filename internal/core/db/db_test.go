package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func sample(id, title string, updated int64) Conversation {
	return Conversation{
		ConversationID: id,
		Title:          title,
		CreatedAt:      time.Unix(updated-100, 0),
		UpdatedAt:      time.Unix(updated, 0),
		MessageCount:   4,
		AssistantCount: 2,
		TextContent:    title + " body text",
		RawJSON:        []byte(`{"id": "` + id + `"}`),
		SourceFile:     "conversations.json",
	}
}

func TestNew_WALMode(t *testing.T) {
	database := newTestDB(t)

	// Verify WAL mode is enabled
	var journalMode string
	err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestSchemaCreation(t *testing.T) {
	database := newTestDB(t)

	for _, table := range []string{"conversations", "import_log", "saved_notes", "conversations_fts"} {
		var n int
		err := database.conn.QueryRow(`
			SELECT COUNT(*) FROM sqlite_master
			WHERE type='table' AND name=?
		`, table).Scan(&n)
		if err != nil {
			t.Fatalf("Failed to check table %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("Expected table %s to exist", table)
		}
	}

	has, err := database.hasColumn("conversations", "source_file")
	if err != nil {
		t.Fatalf("hasColumn() error = %v", err)
	}
	if !has {
		t.Error("Expected conversations.source_file column")
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := database.UpsertConversation(sample("c1", "First", 1700000000)); err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}
	_ = database.Close()

	// Schema init and migrations must be idempotent
	database, err = New(path)
	if err != nil {
		t.Fatalf("New() on existing db error = %v", err)
	}
	defer func() { _ = database.Close() }()

	convs, err := database.ListConversations(ListFilter{Query: "first"})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("Expected 1 conversation after reopen, got %d", len(convs))
	}
}

func TestUpsertAndGet(t *testing.T) {
	database := newTestDB(t)

	c := sample("conv-abc", "Go channels", 1700000300)
	if err := database.UpsertConversation(c); err != nil {
		t.Fatalf("UpsertConversation() error = %v", err)
	}

	got, err := database.GetConversation("conv-abc")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Title != "Go channels" || got.AssistantCount != 2 || got.MessageCount != 4 {
		t.Errorf("GetConversation() = %+v", got)
	}
	if string(got.RawJSON) != string(c.RawJSON) {
		t.Errorf("RawJSON = %s, want %s", got.RawJSON, c.RawJSON)
	}
	if !got.UpdatedAt.Equal(c.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, c.UpdatedAt)
	}

	// Re-import replaces the row
	c.Title = "Go channels (renamed)"
	c.AssistantCount = 3
	if err := database.UpsertConversation(c); err != nil {
		t.Fatalf("UpsertConversation() second call error = %v", err)
	}
	got, err = database.GetConversation("conv-abc")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Title != "Go channels (renamed)" || got.AssistantCount != 3 {
		t.Errorf("upsert did not replace row: %+v", got)
	}

	convs, err := database.ListConversations(ListFilter{})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("Expected 1 conversation, got %d", len(convs))
	}
}

func TestGetConversation_Prefix(t *testing.T) {
	database := newTestDB(t)
	if err := database.UpsertConversations([]Conversation{
		sample("abc-111", "One", 1700000000),
		sample("abc-222", "Two", 1700000100),
		sample("xyz-333", "Three", 1700000200),
	}); err != nil {
		t.Fatalf("UpsertConversations() error = %v", err)
	}

	tests := []struct {
		id      string
		want    string
		wantErr error
	}{
		{"abc-111", "abc-111", nil},
		{"xyz", "xyz-333", nil},
		{"abc-2", "abc-222", nil},
		{"abc", "", ErrAmbiguousID},
		{"nope", "", ErrNotFound},
		{"", "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := database.GetConversation(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetConversation(%q) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetConversation(%q) error = %v", tt.id, err)
			}
			if got.ConversationID != tt.want {
				t.Errorf("GetConversation(%q) = %s, want %s", tt.id, got.ConversationID, tt.want)
			}
		})
	}
}

func TestListConversations_Filters(t *testing.T) {
	database := newTestDB(t)
	if err := database.UpsertConversations([]Conversation{
		sample("c1", "Go channels", 1700000000),
		sample("c2", "Rust lifetimes", 1700100000),
		sample("c3", "Go generics", 1700200000),
	}); err != nil {
		t.Fatalf("UpsertConversations() error = %v", err)
	}

	all, err := database.ListConversations(ListFilter{})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(all) != 3 || all[0].ConversationID != "c3" || all[2].ConversationID != "c1" {
		t.Errorf("Expected newest first, got %v", ids(all))
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"query", ListFilter{Query: "go"}, []string{"c3", "c1"}},
		{"query with quote", ListFilter{Query: `"lifetimes`}, []string{"c2"}},
		{"since", ListFilter{Since: time.Unix(1700100000, 0)}, []string{"c3", "c2"}},
		{"limit", ListFilter{Limit: 1}, []string{"c3"}},
		{"combined", ListFilter{Query: "go", Since: time.Unix(1700100000, 0)}, []string{"c3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := database.ListConversations(tt.filter)
			if err != nil {
				t.Fatalf("ListConversations() error = %v", err)
			}
			if g := ids(got); !equalStrings(g, tt.want) {
				t.Errorf("ListConversations(%+v) = %v, want %v", tt.filter, g, tt.want)
			}
		})
	}
}

func TestSavedNotes(t *testing.T) {
	database := newTestDB(t)

	at := time.Unix(1700000000, 0)
	if err := database.RecordSavedNote("c1_u1_a1", "c1", "ChatGPT/one.md", at); err != nil {
		t.Fatalf("RecordSavedNote() error = %v", err)
	}
	if err := database.RecordSavedNote("c1_u1_a1", "c1", "ChatGPT/one (1).md", at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordSavedNote() error = %v", err)
	}
	if err := database.RecordSavedNote("c2_u_a", "c2", "ChatGPT/two.md", at); err != nil {
		t.Fatalf("RecordSavedNote() error = %v", err)
	}

	notes, err := database.SavedNotes("c1")
	if err != nil {
		t.Fatalf("SavedNotes() error = %v", err)
	}
	if len(notes) != 2 || notes[1].Path != "ChatGPT/one (1).md" {
		t.Errorf("SavedNotes(c1) = %+v", notes)
	}

	all, err := database.SavedNotes("")
	if err != nil {
		t.Fatalf("SavedNotes() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 notes, got %d", len(all))
	}
}

func TestImportLog(t *testing.T) {
	database := newTestDB(t)

	done, err := database.IsImported("hash-1")
	if err != nil {
		t.Fatalf("IsImported() error = %v", err)
	}
	if done {
		t.Error("fresh database should not report imports")
	}

	if err := database.LogImport(ImportRecord{FilePath: "a.json", FileHash: "hash-1", Status: ImportFailed, Error: "bad"}); err != nil {
		t.Fatalf("LogImport() error = %v", err)
	}
	if done, _ = database.IsImported("hash-1"); done {
		t.Error("failed import must not count as imported")
	}

	if err := database.LogImport(ImportRecord{FilePath: "a.json", FileHash: "hash-1", Conversations: 2, Messages: 9}); err != nil {
		t.Fatalf("LogImport() error = %v", err)
	}
	if done, _ = database.IsImported("hash-1"); !done {
		t.Error("successful import should be recorded")
	}

	if err := database.LogImport(ImportRecord{FilePath: "a.json", FileHash: "h", Status: "bogus"}); err == nil {
		t.Error("expected check constraint to reject unknown status")
	}
}

func TestGetStats(t *testing.T) {
	database := newTestDB(t)

	stats, err := database.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalConversations != 0 || !stats.OldestConversation.IsZero() {
		t.Errorf("empty stats = %+v", stats)
	}

	if err := database.UpsertConversations([]Conversation{
		sample("c1", "One", 1700000000),
		sample("c2", "Two", 1700100000),
	}); err != nil {
		t.Fatalf("UpsertConversations() error = %v", err)
	}
	if err := database.RecordSavedNote("p", "c1", "x.md", time.Now()); err != nil {
		t.Fatalf("RecordSavedNote() error = %v", err)
	}
	if err := database.LogImport(ImportRecord{FilePath: "a.json", FileHash: "h"}); err != nil {
		t.Fatalf("LogImport() error = %v", err)
	}

	stats, err = database.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalConversations != 2 || stats.TotalMessages != 8 || stats.TotalAssistant != 4 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.SavedNotes != 1 || stats.Imports != 1 || stats.LastImport == "" {
		t.Errorf("notes/imports = %+v", stats)
	}
	if stats.OldestConversation.Unix() != 1699999900 || stats.NewestConversation.Unix() != 1700100000 {
		t.Errorf("range = %v .. %v", stats.OldestConversation, stats.NewestConversation)
	}
	if stats.SizeBytes == 0 {
		t.Error("expected non-zero database size")
	}
}

func TestFTSQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"  go   channels ", `"go" "channels"`},
		{`say "hi`, `"say" """hi"`},
	}
	for _, tt := range tests {
		if got := ftsQuery(tt.in); got != tt.want {
			t.Errorf("ftsQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func ids(convs []Conversation) []string {
	out := make([]string, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ConversationID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
