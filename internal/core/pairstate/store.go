// Package pairstate tracks the save/ignore state of question/answer pairs and
// persists it as a single JSON document in the vault.
package pairstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neilberkman/threadkeep/internal/core/docstore"
	"github.com/neilberkman/threadkeep/internal/core/logger"
	"github.com/neilberkman/threadkeep/internal/core/models"
)

// DefaultPath is where the state document lives inside the vault
const DefaultPath = ".threadkeep/qa-pairs.json"

var (
	// ErrCorruptStateFile means the state document exists but cannot be decoded
	ErrCorruptStateFile = errors.New("corrupt state file")
	// ErrPersistence means the in-memory state changed but could not be written
	ErrPersistence = errors.New("failed to persist pair state")
)

type document struct {
	QAPairs     map[string]models.QAPair `json:"qaPairs"`
	LastUpdated int64                    `json:"lastUpdated"`
}

// Store is the in-memory pair state with write-through persistence.
// All methods are safe for concurrent use; mutations and writes are serialized.
type Store struct {
	mu          sync.Mutex
	docs        docstore.Store
	path        string
	log         *logger.Logger
	now         func() time.Time
	pairs       map[string]models.QAPair
	lastUpdated int64
}

type Option func(*Store)

func WithPath(path string) Option {
	return func(s *Store) { s.path = path }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. Call Load to read persisted state.
func New(docs docstore.Store, opts ...Option) *Store {
	s := &Store{
		docs:  docs,
		path:  DefaultPath,
		log:   logger.Nop(),
		now:   time.Now,
		pairs: map[string]models.QAPair{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted document.
// A missing document or an unrecognized shape yields an empty store; a document
// that is not valid JSON returns ErrCorruptStateFile.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs, lastUpdated, err := s.readDocument()
	if err != nil {
		return err
	}
	s.pairs = pairs
	s.lastUpdated = lastUpdated
	s.log.Debug("loaded pair state", "path", s.path, "pairs", len(pairs))
	return nil
}

// GetState returns the pair's state, StateNew when it was never recorded
func (s *Store) GetState(pairID string) models.PairState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pairs[pairID]; ok {
		return p.State
	}
	return models.StateNew
}

// Get returns the stored record for a pair
func (s *Store) Get(pairID string) (models.QAPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairs[pairID]
	return p, ok
}

// UpdateState upserts the pair record and persists the whole store.
// On a persistence error the in-memory change is kept and the error wraps ErrPersistence.
func (s *Store) UpdateState(pairID string, state models.PairState, conversationID, prompt, response string) error {
	rec := models.QAPair{
		ID:              pairID,
		ContentHash:     ContentHash(prompt, response),
		ConversationID:  conversationID,
		State:           state,
		PromptPreview:   Truncate(prompt, PreviewLength),
		ResponsePreview: Truncate(response, PreviewLength),
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid pair: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.LastModified = s.now().UnixMilli()
	s.pairs[pairID] = rec
	s.lastUpdated = rec.LastModified

	if err := s.persistLocked(); err != nil {
		s.log.Error("pair state not persisted", "pair", pairID, "state", state.String(), "error", err)
		return fmt.Errorf("%w: pair %s: %w", ErrPersistence, pairID, err)
	}
	s.log.Debug("pair state updated", "pair", pairID, "state", state.String())
	return nil
}

// persistLocked merges records written by other processes since our last
// read, then writes the store. Caller holds mu.
func (s *Store) persistLocked() error {
	onDisk, _, err := s.readDocument()
	if err != nil {
		return err
	}
	for id, theirs := range onDisk {
		mine, ok := s.pairs[id]
		if !ok || theirs.LastModified > mine.LastModified {
			s.pairs[id] = theirs
		}
	}

	data, err := json.MarshalIndent(document{QAPairs: s.pairs, LastUpdated: s.lastUpdated}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.docs.Write(s.path, data)
}

func (s *Store) readDocument() (map[string]models.QAPair, int64, error) {
	entry, err := s.docs.Exists(s.path)
	if err != nil {
		return nil, 0, fmt.Errorf("check state file: %w", err)
	}
	if entry == nil {
		return map[string]models.QAPair{}, 0, nil
	}

	data, err := s.docs.Read(s.path)
	if errors.Is(err, docstore.ErrNotFound) {
		return map[string]models.QAPair{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read state file: %w", err)
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) (map[string]models.QAPair, int64, error) {
	if !json.Valid(data) {
		return nil, 0, fmt.Errorf("%w: %s is not valid JSON", ErrCorruptStateFile, s.path)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		s.log.Warn("unrecognized pair state document, starting empty", "path", s.path, "reason", "not an object")
		return map[string]models.QAPair{}, 0, nil
	}

	raw, ok := top["qaPairs"]
	if !ok {
		if _, legacy := top["conversations"]; legacy {
			s.log.Info("discarding legacy conversation-level state", "path", s.path)
		} else {
			s.log.Warn("unrecognized pair state document, starting empty", "path", s.path)
		}
		return map[string]models.QAPair{}, 0, nil
	}

	var pairs map[string]models.QAPair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, 0, fmt.Errorf("%w: qaPairs: %v", ErrCorruptStateFile, err)
	}
	if pairs == nil {
		pairs = map[string]models.QAPair{}
	}
	for id, p := range pairs {
		if p.ID == "" {
			p.ID = id
			pairs[id] = p
		}
	}

	var lastUpdated int64
	if lu, ok := top["lastUpdated"]; ok {
		_ = json.Unmarshal(lu, &lastUpdated)
	}
	return pairs, lastUpdated, nil
}

func (s *Store) counts(conversationID string) (recorded, processed, newRecorded int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pairs {
		if p.ConversationID != conversationID {
			continue
		}
		recorded++
		if p.State == models.StateNew {
			newRecorded++
		} else {
			processed++
		}
	}
	return recorded, processed, newRecorded
}

// Status derives a conversation's status from recorded pairs only
func (s *Store) Status(conversationID string) models.ConversationStatus {
	recorded, _, newRecorded := s.counts(conversationID)
	switch {
	case recorded == 0:
		return models.StatusUnprocessed
	case newRecorded > 0:
		return models.StatusPartial
	default:
		return models.StatusProcessed
	}
}

// StatusWithTotal derives a conversation's status given its number of assistant
// messages; messages never recorded count as new.
func (s *Store) StatusWithTotal(conversationID string, totalAssistant int) models.ConversationStatus {
	recorded, processed, newRecorded := s.counts(conversationID)
	unrecorded := totalAssistant - recorded
	if unrecorded < 0 {
		unrecorded = 0
	}
	switch totalNew := newRecorded + unrecorded; {
	case totalNew == 0:
		return models.StatusProcessed
	case processed > 0:
		return models.StatusPartial
	default:
		return models.StatusUnprocessed
	}
}

// Pairs returns every record sorted by id
func (s *Store) Pairs() []models.QAPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.QAPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PairsForConversation returns the records of one conversation sorted by id
func (s *Store) PairsForConversation(conversationID string) []models.QAPair {
	var out []models.QAPair
	for _, p := range s.Pairs() {
		if p.ConversationID == conversationID {
			out = append(out, p)
		}
	}
	return out
}

// LastUpdated is the time of the most recent persisted mutation
func (s *Store) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastUpdated == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.lastUpdated)
}

// Path is the vault-relative location of the state document
func (s *Store) Path() string {
	return s.path
}
