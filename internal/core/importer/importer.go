package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neilberkman/threadkeep/internal/core/db"
	"github.com/neilberkman/threadkeep/internal/core/logger"
	"github.com/neilberkman/threadkeep/pkg/chatexport"
)

// ExportFileName is the file inside an unpacked ChatGPT export that holds the conversations
const ExportFileName = "conversations.json"

// Importer loads ChatGPT exports into the catalog
type Importer struct {
	db  *db.DB
	log *logger.Logger
}

// New creates a new importer
func New(database *db.DB, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{db: database, log: log}
}

// Result summarizes one import
type Result struct {
	FilePath      string
	Skipped       bool // file hash already imported
	Conversations int
	Messages      int
	Pairs         int
	Empty         int // conversations with no discoverable thread
}

// ImportFile imports a conversations.json export, or an unpacked export
// directory containing one. A file whose hash was already imported is skipped
// unless force is set. Every conversation is written in one transaction.
func (i *Importer) ImportFile(path string, force bool, progress ProgressCallback) (*Result, error) {
	path, err := resolveExportPath(path)
	if err != nil {
		return nil, err
	}
	res := &Result{FilePath: path}

	hash, err := computeFileHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	if !force {
		done, err := i.db.IsImported(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to check import log: %w", err)
		}
		if done {
			i.log.Info("export already imported", "path", path, "hash", hash[:12])
			res.Skipped = true
			return res, nil
		}
	}

	convs, err := chatexport.ParseFile(path)
	if err != nil {
		i.logFailure(path, hash, err)
		return nil, err
	}

	if progress != nil {
		progress.Start(len(convs))
	}

	records := make([]db.Conversation, 0, len(convs))
	for _, conv := range convs {
		thread, err := chatexport.Extract(conv)
		if err != nil {
			i.logFailure(path, hash, err)
			return nil, err
		}
		if len(thread.Entries) == 0 {
			res.Empty++
			i.log.Debug("conversation has no thread", "conversation", conv.ID)
		}

		records = append(records, db.Conversation{
			ConversationID: conv.ID,
			Title:          conv.Title,
			CreatedAt:      unixTime(conv.CreatedAt),
			UpdatedAt:      unixTime(conv.UpdatedAt),
			MessageCount:   len(thread.Entries),
			AssistantCount: thread.AssistantCount(),
			TextContent:    threadText(thread),
			RawJSON:        conv.Raw,
			SourceFile:     path,
		})
		res.Messages += len(thread.Entries)
		res.Pairs += thread.AssistantCount()

		if progress != nil {
			firstMsg := ""
			if len(thread.Entries) > 0 {
				firstMsg = thread.Entries[0].Content
			}
			progress.Update(conv.Title, firstMsg)
		}
	}

	if err := i.db.UpsertConversations(records); err != nil {
		i.logFailure(path, hash, err)
		return nil, fmt.Errorf("failed to store conversations: %w", err)
	}
	res.Conversations = len(records)

	if err := i.db.LogImport(db.ImportRecord{
		FilePath:      path,
		FileHash:      hash,
		Conversations: res.Conversations,
		Messages:      res.Messages,
		Status:        db.ImportSuccess,
	}); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	if progress != nil {
		progress.Finish()
	}
	i.log.Info("export imported", "path", path, "conversations", res.Conversations, "pairs", res.Pairs)
	return res, nil
}

func (i *Importer) logFailure(path, hash string, cause error) {
	i.log.Error("import failed", "path", path, "error", cause)
	if err := i.db.LogImport(db.ImportRecord{
		FilePath: path,
		FileHash: hash,
		Status:   db.ImportFailed,
		Error:    cause.Error(),
	}); err != nil {
		i.log.Warn("failed to record failed import", "error", err)
	}
}

func resolveExportPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to open export: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	candidate := filepath.Join(path, ExportFileName)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("no %s in %s", ExportFileName, path)
	}
	return candidate, nil
}

// threadText is what the catalog indexes for full-text search
func threadText(t chatexport.Thread) string {
	parts := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		parts = append(parts, e.Content)
	}
	return strings.Join(parts, "\n\n")
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func computeFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
