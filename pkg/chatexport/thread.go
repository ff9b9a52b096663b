package chatexport

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is returned when the primary branch revisits a node.
// It matches ErrInvalidExportFormat with errors.Is.
var ErrCycle = cycleError{}

type cycleError struct{}

func (cycleError) Error() string { return "message tree contains a cycle" }

func (cycleError) Is(target error) bool { return target == ErrInvalidExportFormat }

// Entry is one message of a linear thread
type Entry struct {
	ID        string
	Role      Role
	Content   string
	Timestamp int64
}

// Thread is the linear reduction of a conversation's message tree
type Thread struct {
	ConversationID string
	Entries        []Entry
}

// Pair is an assistant reply together with the user prompt that preceded it
type Pair struct {
	UserMessageID      string // empty when no user message precedes the reply
	AssistantMessageID string
	Prompt             string
	Response           string
	Timestamp          int64
}

// Extract walks the primary branch of the conversation: it starts at the first
// user message hanging off a system message and always follows the first child.
// A conversation without such a start node yields an empty thread.
func Extract(conv Conversation) (Thread, error) {
	thread := Thread{ConversationID: conv.ID}

	start := findStart(conv.Mapping)
	if start == "" {
		return thread, nil
	}

	visited := make(map[string]struct{}, len(conv.Mapping))
	for id := start; id != ""; {
		if _, seen := visited[id]; seen {
			return Thread{}, fmt.Errorf("conversation %q: node %q: %w", conv.ID, id, ErrCycle)
		}
		visited[id] = struct{}{}

		node, ok := conv.Mapping[id]
		if !ok {
			return Thread{}, fmt.Errorf("%w: conversation %q: missing node %q", ErrInvalidExportFormat, conv.ID, id)
		}

		if msg := node.Message; msg != nil && msg.Role != RoleSystem && strings.TrimSpace(msg.Content) != "" {
			thread.Entries = append(thread.Entries, Entry{
				ID:        msg.ID,
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
			})
		}

		id = ""
		if len(node.ChildIDs) > 0 {
			id = node.ChildIDs[0]
		}
	}

	return thread, nil
}

// findStart returns the first node, in ascending id order, whose message is a
// user message whose parent carries a system message.
func findStart(mapping map[string]*Node) string {
	ids := make([]string, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := mapping[id]
		if node.Message == nil || node.Message.Role != RoleUser || node.ParentID == "" {
			continue
		}
		parent, ok := mapping[node.ParentID]
		if !ok || parent.Message == nil {
			continue
		}
		if parent.Message.Role == RoleSystem {
			return id
		}
	}
	return ""
}

// Pairs returns one pair per assistant entry. The prompt is the most recent
// user entry before it, if any.
func (t Thread) Pairs() []Pair {
	var (
		pairs    []Pair
		lastUser *Entry
	)
	for i := range t.Entries {
		e := &t.Entries[i]
		switch e.Role {
		case RoleUser:
			lastUser = e
		case RoleAssistant:
			p := Pair{
				AssistantMessageID: e.ID,
				Response:           e.Content,
				Timestamp:          e.Timestamp,
			}
			if lastUser != nil {
				p.UserMessageID = lastUser.ID
				p.Prompt = lastUser.Content
			}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// AssistantCount is the number of assistant entries in the thread
func (t Thread) AssistantCount() int {
	n := 0
	for _, e := range t.Entries {
		if e.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// ExtractAll extracts every conversation, stopping at the first malformed tree
func ExtractAll(convs []Conversation) ([]Thread, error) {
	threads := make([]Thread, 0, len(convs))
	for _, c := range convs {
		t, err := Extract(c)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, nil
}

// IsInvalidExport reports whether err came from a malformed export
func IsInvalidExport(err error) bool {
	return errors.Is(err, ErrInvalidExportFormat)
}
