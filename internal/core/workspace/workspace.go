// Package workspace ties the catalog, the vault and the pair state together
// for the command line, TUI and MCP front ends.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/neilberkman/threadkeep/internal/core/allocator"
	"github.com/neilberkman/threadkeep/internal/core/config"
	"github.com/neilberkman/threadkeep/internal/core/db"
	"github.com/neilberkman/threadkeep/internal/core/docstore"
	"github.com/neilberkman/threadkeep/internal/core/importer"
	"github.com/neilberkman/threadkeep/internal/core/logger"
	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/pairstate"
	"github.com/neilberkman/threadkeep/internal/core/saver"
	"github.com/neilberkman/threadkeep/pkg/chatexport"
)

// ErrPairIndex is returned for a pair number outside the thread
var ErrPairIndex = errors.New("no such pair")

type Options struct {
	DBPath string
	Config *config.Config
	Log    *logger.Logger
}

type Workspace struct {
	Config *config.Config
	DB     *db.DB
	Docs   docstore.Store
	State  *pairstate.Store
	Saver  *saver.Saver
	log    *logger.Logger

	// Extracted threads keyed by conversation revision
	threads *cache.Cache
}

// Open opens the catalog and the vault and loads the pair state.
// An unset vault means the current directory.
func Open(opts Options) (*Workspace, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	vault := cfg.Vault
	if vault == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine vault: %w", err)
		}
		vault = wd
	}
	docs, err := docstore.NewFS(vault)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	database, err := db.New(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return build(cfg, database, docs, opts.Log)
}

// build assembles a workspace over an open catalog and document store
func build(cfg *config.Config, database *db.DB, docs docstore.Store, log *logger.Logger) (*Workspace, error) {
	if log == nil {
		log = logger.Nop()
	}
	state := pairstate.New(docs, pairstate.WithLogger(log))
	if err := state.Load(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to load pair state: %w", err)
	}

	s := saver.New(docs, allocator.New(docs, cfg.MaxCollisions, log), state, saver.Config{
		Folder:        cfg.Folder,
		Tags:          cfg.Tags,
		TitleTemplate: cfg.TitleTemplate,
		Note:          cfg.NoteOptions(),
	}, log)
	s.SetRecorder(database)

	return &Workspace{
		Config:  cfg,
		DB:      database,
		Docs:    docs,
		State:   state,
		Saver:   s,
		log:     log,
		threads: cache.New(10*time.Minute, 20*time.Minute),
	}, nil
}

// Close closes the catalog
func (w *Workspace) Close() error {
	return w.DB.Close()
}

// Import loads an export into the catalog. Pair state is untouched: pairs
// keep their identity across re-imports.
func (w *Workspace) Import(path string, force bool, progress importer.ProgressCallback) (*importer.Result, error) {
	res, err := importer.New(w.DB, w.log).ImportFile(path, force, progress)
	if err == nil && !res.Skipped {
		w.threads.Flush()
	}
	return res, err
}

// PairView is one pair of a thread with its identity and current state
type PairView struct {
	Index int // 1-based
	ID    string
	Pair  chatexport.Pair
	State models.PairState
}

// ConversationView is a catalogued conversation with its freshly extracted thread
type ConversationView struct {
	db.Conversation
	Thread chatexport.Thread
	Pairs  []PairView
	Status models.ConversationStatus
}

// Conversation loads a conversation by id or unique id prefix and re-extracts its thread
func (w *Workspace) Conversation(id string) (*ConversationView, error) {
	rec, err := w.DB.GetConversation(id)
	if err != nil {
		return nil, err
	}

	thread, err := w.thread(rec)
	if err != nil {
		return nil, err
	}

	view := &ConversationView{Conversation: *rec, Thread: thread}
	for i, p := range thread.Pairs() {
		pid := saver.PairID(rec.ConversationID, p)
		view.Pairs = append(view.Pairs, PairView{
			Index: i + 1,
			ID:    pid,
			Pair:  p,
			State: w.State.GetState(pid),
		})
	}
	view.Status = w.State.StatusWithTotal(rec.ConversationID, thread.AssistantCount())
	return view, nil
}

// thread re-extracts the stored conversation, reusing the last extraction of
// the same revision
func (w *Workspace) thread(rec *db.Conversation) (chatexport.Thread, error) {
	key := fmt.Sprintf("%s@%d/%d", rec.ConversationID, rec.UpdatedAt.Unix(), len(rec.RawJSON))
	if t, found := w.threads.Get(key); found {
		return t.(chatexport.Thread), nil
	}

	conv, err := chatexport.ParseConversation(rec.RawJSON)
	if err != nil {
		return chatexport.Thread{}, fmt.Errorf("stored conversation %s: %w", rec.ConversationID, err)
	}
	thread, err := chatexport.Extract(conv)
	if err != nil {
		return chatexport.Thread{}, err
	}

	w.threads.Set(key, thread, cache.DefaultExpiration)
	return thread, nil
}

// Summary is a list entry: a conversation and its derived status
type Summary struct {
	db.Conversation
	Status models.ConversationStatus
}

// List returns catalogued conversations with their status. A non-nil status
// keeps only conversations in that status.
func (w *Workspace) List(filter db.ListFilter, status *models.ConversationStatus) ([]Summary, error) {
	// status filtering happens after the limit would cut rows, so fetch unbounded
	limit := filter.Limit
	if status != nil {
		filter.Limit = 0
	}

	convs, err := w.DB.ListConversations(filter)
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, c := range convs {
		s := Summary{Conversation: c, Status: w.State.StatusWithTotal(c.ConversationID, c.AssistantCount)}
		if status != nil && s.Status != *status {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SaveOptions override the configured title, folder and tags for one save
type SaveOptions struct {
	Title  string
	Folder string
	Tags   string
}

// Save writes pair number index of the conversation as a note
func (w *Workspace) Save(conversationID string, index int, opts SaveOptions) (saver.Result, error) {
	view, pv, err := w.pair(conversationID, index)
	if err != nil {
		return saver.Result{}, err
	}
	return w.Saver.Save(saver.Request{
		ConversationID:    view.ConversationID,
		ConversationTitle: view.Title,
		Pair:              pv.Pair,
		Index:             pv.Index,
		Title:             opts.Title,
		Folder:            opts.Folder,
		Tags:              opts.Tags,
	})
}

// SetState marks pair number index IGNORED or NEW. Saving goes through Save.
func (w *Workspace) SetState(conversationID string, index int, state models.PairState) (string, error) {
	view, pv, err := w.pair(conversationID, index)
	if err != nil {
		return "", err
	}
	switch state {
	case models.StateIgnored:
		return w.Saver.Ignore(view.ConversationID, pv.Pair)
	case models.StateNew:
		return w.Saver.Reset(view.ConversationID, pv.Pair)
	default:
		return "", fmt.Errorf("use Save to mark a pair %s", state)
	}
}

func (w *Workspace) pair(conversationID string, index int) (*ConversationView, PairView, error) {
	view, err := w.Conversation(conversationID)
	if err != nil {
		return nil, PairView{}, err
	}
	if index < 1 || index > len(view.Pairs) {
		return nil, PairView{}, fmt.Errorf("%w: %d (conversation has %d)", ErrPairIndex, index, len(view.Pairs))
	}
	return view, view.Pairs[index-1], nil
}
