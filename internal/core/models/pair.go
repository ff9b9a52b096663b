package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PairState is the lifecycle state of a question/answer pair
type PairState int

const (
	StateNew PairState = iota
	StateSaved
	StateIgnored
)

func (s PairState) String() string {
	switch s {
	case StateSaved:
		return "saved"
	case StateIgnored:
		return "ignored"
	default:
		return "new"
	}
}

// ParsePairState parses "new", "saved" or "ignored"
func ParsePairState(s string) (PairState, error) {
	switch s {
	case "new":
		return StateNew, nil
	case "saved":
		return StateSaved, nil
	case "ignored":
		return StateIgnored, nil
	}
	return StateNew, fmt.Errorf("unknown pair state %q", s)
}

func (s PairState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PairState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParsePairState(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// QAPair is the persisted record of one pair's state
type QAPair struct {
	ID              string    `json:"id"`
	ContentHash     string    `json:"contentHash"`
	ConversationID  string    `json:"conversationId"`
	State           PairState `json:"state"`
	LastModified    int64     `json:"lastModified"` // epoch milliseconds
	PromptPreview   string    `json:"promptPreview"`
	ResponsePreview string    `json:"responsePreview"`
}

// Modified returns LastModified as a time
func (p QAPair) Modified() time.Time {
	return time.UnixMilli(p.LastModified)
}

// Validate checks if the pair has required fields
func (p *QAPair) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.ConversationID == "" {
		return errors.New("conversationId is required")
	}
	return nil
}

// ConversationStatus is derived from the states of a conversation's pairs
type ConversationStatus int

const (
	StatusUnprocessed ConversationStatus = iota
	StatusPartial
	StatusProcessed
)

func (s ConversationStatus) String() string {
	switch s {
	case StatusPartial:
		return "partial"
	case StatusProcessed:
		return "processed"
	default:
		return "unprocessed"
	}
}

// ParseConversationStatus parses the String form of a status
func ParseConversationStatus(s string) (ConversationStatus, error) {
	switch s {
	case "unprocessed":
		return StatusUnprocessed, nil
	case "partial":
		return StatusPartial, nil
	case "processed":
		return StatusProcessed, nil
	}
	return StatusUnprocessed, fmt.Errorf("unknown conversation status %q", s)
}
