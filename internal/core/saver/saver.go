// Package saver turns a question/answer pair into a note in the vault and
// records the pair's new state.
package saver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/neilberkman/threadkeep/internal/core/allocator"
	"github.com/neilberkman/threadkeep/internal/core/docstore"
	"github.com/neilberkman/threadkeep/internal/core/logger"
	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/note"
	"github.com/neilberkman/threadkeep/internal/core/pairstate"
	"github.com/neilberkman/threadkeep/pkg/chatexport"
)

// DefaultMaxCreateRetries bounds how often a lost create race re-runs allocation
const DefaultMaxCreateRetries = 5

// ErrPersistence is the same kind the pair store reports; a create that fails
// for reasons other than a name clash wraps it too.
var ErrPersistence = pairstate.ErrPersistence

// Recorder is notified after a note is written. Failures are logged only.
type Recorder interface {
	RecordSavedNote(pairID, conversationID, path string, savedAt time.Time) error
}

type Config struct {
	Folder           string
	Tags             string
	TitleTemplate    string
	Note             note.Options
	MaxCreateRetries int
}

type Saver struct {
	mu       sync.Mutex
	docs     docstore.Store
	alloc    *allocator.Allocator
	state    *pairstate.Store
	cfg      Config
	log      *logger.Logger
	recorder Recorder
	now      func() time.Time
}

func New(docs docstore.Store, alloc *allocator.Allocator, state *pairstate.Store, cfg Config, log *logger.Logger) *Saver {
	if cfg.MaxCreateRetries <= 0 {
		cfg.MaxCreateRetries = DefaultMaxCreateRetries
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Saver{docs: docs, alloc: alloc, state: state, cfg: cfg, log: log, now: time.Now}
}

// SetRecorder registers r to be told about every note written
func (s *Saver) SetRecorder(r Recorder) {
	s.recorder = r
}

// Request describes one save. Empty Title, Folder and Tags use the configured defaults.
type Request struct {
	ConversationID    string
	ConversationTitle string
	Pair              chatexport.Pair
	Index             int
	Title             string
	Folder            string
	Tags              string
}

type Result struct {
	PairID string
	Path   string
	Title  string
}

// PairID is the identity of p within its conversation
func PairID(conversationID string, p chatexport.Pair) string {
	return pairstate.PairID(conversationID, p.UserMessageID, p.AssistantMessageID)
}

// Save writes the pair as a new note and marks it SAVED. When the note is
// written but the state update fails, the result still carries the path.
func (s *Saver) Save(req Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{PairID: PairID(req.ConversationID, req.Pair)}
	res.Title = strings.TrimSpace(req.Title)
	if res.Title == "" {
		res.Title = note.Title(s.cfg.TitleTemplate, note.TitleData{
			ConversationTitle: req.ConversationTitle,
			Prompt:            req.Pair.Prompt,
			Timestamp:         req.Pair.Timestamp,
			Index:             req.Index,
		})
	}

	folder := firstNonEmpty(req.Folder, s.cfg.Folder)
	tags := firstNonEmpty(req.Tags, s.cfg.Tags)

	body, err := note.Render(note.Input{
		Title:             res.Title,
		Tags:              tags,
		Prompt:            req.Pair.Prompt,
		Response:          req.Pair.Response,
		ConversationTitle: req.ConversationTitle,
		Timestamp:         req.Pair.Timestamp,
	}, s.cfg.Note)
	if err != nil {
		return res, err
	}

	path, err := s.create(res.Title, folder, []byte(body))
	if err != nil {
		return res, err
	}
	res.Path = path
	s.log.Info("note written", "pair", res.PairID, "path", path)

	if s.recorder != nil {
		if err := s.recorder.RecordSavedNote(res.PairID, req.ConversationID, path, s.now()); err != nil {
			s.log.Warn("failed to record saved note", "pair", res.PairID, "error", err)
		}
	}

	if err := s.state.UpdateState(res.PairID, models.StateSaved, req.ConversationID, req.Pair.Prompt, req.Pair.Response); err != nil {
		return res, fmt.Errorf("note saved to %s but state not updated: %w", path, err)
	}
	return res, nil
}

// create allocates a name and creates the note, re-allocating when another
// writer takes the name between the check and the create.
func (s *Saver) create(title, folder string, body []byte) (string, error) {
	var lost []string
	for attempt := 0; ; attempt++ {
		path, err := s.alloc.Allocate(title, folder, lost...)
		if err != nil {
			return "", err
		}

		err = s.docs.Create(path, body)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, docstore.ErrAlreadyExists) {
			return "", fmt.Errorf("%w: create %s: %w", ErrPersistence, path, err)
		}
		if attempt >= s.cfg.MaxCreateRetries {
			return "", fmt.Errorf("giving up after %d create races: %w", attempt+1, err)
		}
		s.log.Debug("lost create race, reallocating", "path", path, "attempt", attempt+1)
		lost = append(lost, path)
	}
}

// Ignore marks the pair IGNORED without writing a note
func (s *Saver) Ignore(conversationID string, p chatexport.Pair) (string, error) {
	return s.transition(conversationID, p, models.StateIgnored)
}

// Reset marks the pair NEW again. Notes already written are left in place.
func (s *Saver) Reset(conversationID string, p chatexport.Pair) (string, error) {
	return s.transition(conversationID, p, models.StateNew)
}

func (s *Saver) transition(conversationID string, p chatexport.Pair, state models.PairState) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := PairID(conversationID, p)
	if err := s.state.UpdateState(id, state, conversationID, p.Prompt, p.Response); err != nil {
		return id, err
	}
	s.log.Info("pair state changed", "pair", id, "state", state.String())
	return id, nil
}

// State reports the current state of the pair
func (s *Saver) State(conversationID string, p chatexport.Pair) models.PairState {
	return s.state.GetState(PairID(conversationID, p))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
