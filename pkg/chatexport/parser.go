package chatexport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrInvalidExportFormat is returned for any export that cannot be parsed or
// whose message tree is structurally invalid.
var ErrInvalidExportFormat = errors.New("invalid export format")

// Role is the author role of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

func parseRole(s string) (Role, bool) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return r, true
	}
	return "", false
}

// Message is a single parsed message. Content holds the string parts joined by newline.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp int64 // seconds, 0 when the export has no create_time
	ParentID  string
	ChildIDs  []string
}

// Node is one entry of a conversation's mapping. Message is nil for tombstoned nodes.
type Node struct {
	ID       string
	Message  *Message
	ParentID string
	ChildIDs []string
}

// Conversation is a parsed conversation with its message tree
type Conversation struct {
	ID        string
	Title     string
	CreatedAt int64
	UpdatedAt int64
	Mapping   map[string]*Node
	// Raw is the conversation's original JSON object
	Raw json.RawMessage
}

// rawConversation mirrors one element of conversations.json
type rawConversation struct {
	ConversationID string                `json:"conversation_id"`
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	CreateTime     *float64              `json:"create_time"`
	UpdateTime     *float64              `json:"update_time"`
	Mapping        map[string]rawMapNode `json:"mapping"`
}

type rawMapNode struct {
	ID       string      `json:"id"`
	Message  *rawMessage `json:"message"`
	Parent   *string     `json:"parent"`
	Children []string    `json:"children"`
}

type rawMessage struct {
	ID         string          `json:"id"`
	Author     rawAuthor       `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
}

type rawAuthor struct {
	Role string `json:"role"`
}

// ParseFile parses a ChatGPT conversations.json export
func ParseFile(path string) (convs []Conversation, err error) {
	file, ferr := os.Open(path)
	if ferr != nil {
		return nil, fmt.Errorf("failed to open file: %w", ferr)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	// The export is typically one huge line
	return Parse(bufio.NewReaderSize(file, 1<<20))
}

// ParseBytes parses an export held in memory
func ParseBytes(data []byte) ([]Conversation, error) {
	return Parse(bytes.NewReader(data))
}

// Parse decodes a top-level JSON array of conversations and validates every
// message tree. Any failure wraps ErrInvalidExportFormat.
func Parse(r io.Reader) ([]Conversation, error) {
	var elems []json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExportFormat, err)
	}
	if elems == nil {
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrInvalidExportFormat)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after conversations array", ErrInvalidExportFormat)
	}

	convs := make([]Conversation, 0, len(elems))
	for i, elem := range elems {
		conv, err := ParseConversation(elem)
		if err != nil {
			return nil, fmt.Errorf("conversation %d: %w", i, err)
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

// ParseConversation parses a single conversation object, as kept in Raw
func ParseConversation(data []byte) (Conversation, error) {
	var raw rawConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return Conversation{}, fmt.Errorf("%w: %v", ErrInvalidExportFormat, err)
	}
	conv, err := convertConversation(raw)
	if err != nil {
		return Conversation{}, fmt.Errorf("%w: %v", ErrInvalidExportFormat, err)
	}
	conv.Raw = append(json.RawMessage(nil), data...)
	return conv, nil
}

func convertConversation(raw rawConversation) (Conversation, error) {
	id := raw.ConversationID
	if id == "" {
		id = raw.ID
	}
	if id == "" {
		return Conversation{}, errors.New("missing conversation_id/id")
	}

	conv := Conversation{
		ID:        id,
		Title:     raw.Title,
		CreatedAt: seconds(raw.CreateTime),
		UpdatedAt: seconds(raw.UpdateTime),
		Mapping:   make(map[string]*Node, len(raw.Mapping)),
	}

	for key, rn := range raw.Mapping {
		nodeID := rn.ID
		if nodeID == "" {
			nodeID = key
		}
		if nodeID != key {
			return Conversation{}, fmt.Errorf("node key %q does not match id %q", key, nodeID)
		}

		node := &Node{ID: nodeID, ChildIDs: rn.Children}
		if rn.Parent != nil {
			node.ParentID = *rn.Parent
		}

		if rn.Message != nil {
			role, ok := parseRole(rn.Message.Author.Role)
			if !ok {
				return Conversation{}, fmt.Errorf("node %q: unknown role %q", nodeID, rn.Message.Author.Role)
			}
			msgID := rn.Message.ID
			if msgID == "" {
				msgID = nodeID
			}
			node.Message = &Message{
				ID:        msgID,
				Role:      role,
				Content:   joinContent(rn.Message.Content),
				Timestamp: seconds(rn.Message.CreateTime),
				ParentID:  node.ParentID,
				ChildIDs:  node.ChildIDs,
			}
		}
		conv.Mapping[nodeID] = node
	}

	// Every link must point inside the mapping
	ids := make([]string, 0, len(conv.Mapping))
	for id := range conv.Mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		node := conv.Mapping[id]
		if node.ParentID != "" {
			if _, ok := conv.Mapping[node.ParentID]; !ok {
				return Conversation{}, fmt.Errorf("node %q: parent %q not in mapping", id, node.ParentID)
			}
		}
		for _, child := range node.ChildIDs {
			if _, ok := conv.Mapping[child]; !ok {
				return Conversation{}, fmt.Errorf("node %q: child %q not in mapping", id, child)
			}
		}
	}

	return conv, nil
}

// joinContent extracts text from a message content object.
// { "content_type": "text", "parts": ["..."] } is the common shape; non-string
// parts (images, attachments) are dropped.
func joinContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var probe struct {
		Parts []any  `json:"parts"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}

	var parts []string
	for _, p := range probe.Parts {
		if s, ok := p.(string); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return probe.Text
}

func seconds(f *float64) int64 {
	if f == nil {
		return 0
	}
	return int64(*f)
}
