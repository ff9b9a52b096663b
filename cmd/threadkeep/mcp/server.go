package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/query"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

// ListConversationsArgs defines arguments for the list_conversations tool
type ListConversationsArgs struct {
	Query  string `json:"query,omitempty" jsonschema:"description=Full-text search over titles and messages"`
	Status string `json:"status,omitempty" jsonschema:"description=unprocessed, partial or processed"`
	Since  string `json:"since,omitempty" jsonschema:"description=Only conversations updated since this date"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Max conversations to return (default: 20)"`
}

// GetThreadArgs defines arguments for the get_thread tool
type GetThreadArgs struct {
	ConversationID string `json:"conversation_id" jsonschema:"description=Conversation id or unique prefix,required"`
}

// SetPairStateArgs defines arguments for the set_pair_state tool
type SetPairStateArgs struct {
	ConversationID string `json:"conversation_id" jsonschema:"required"`
	Pair           int    `json:"pair" jsonschema:"description=1-based pair number from get_thread,required"`
	Action         string `json:"action" jsonschema:"description=save, ignore or reset,required"`
	Title          string `json:"title,omitempty"`
	Folder         string `json:"folder,omitempty"`
	Tags           string `json:"tags,omitempty"`
}

// ImportExportArgs defines arguments for the import_export tool
type ImportExportArgs struct {
	Path  string `json:"path" jsonschema:"required"`
	Force bool   `json:"force,omitempty"`
}

// ConversationSummary represents a conversation in the list
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	Pairs          int    `json:"pairs"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// ThreadDetail is a conversation's linear thread as pairs
type ThreadDetail struct {
	ConversationID string       `json:"conversation_id"`
	Title          string       `json:"title"`
	Status         string       `json:"status"`
	Pairs          []PairDetail `json:"pairs"`
}

// PairDetail is one prompt/response pair
type PairDetail struct {
	Pair      int    `json:"pair"`
	ID        string `json:"id"`
	State     string `json:"state"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PairStateResult reports the outcome of set_pair_state
type PairStateResult struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Path  string `json:"path,omitempty"`
}

// NewServer builds the MCP server over an open workspace
func NewServer(ws *workspace.Workspace, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"threadkeep",
		version,
	)

	listTool := mcp.NewTool("list_conversations",
		mcp.WithDescription("List imported ChatGPT conversations, most recently updated first, with how many of their prompt/response pairs were already saved or ignored"),
		mcp.WithString("query",
			mcp.Description("Full-text search over titles and messages")),
		mcp.WithString("status",
			mcp.Description("Filter by processing status: unprocessed, partial, processed")),
		mcp.WithString("since",
			mcp.Description("Only conversations updated since this date (ISO date or natural language like 'last week')")),
		mcp.WithNumber("limit",
			mcp.Description("Max conversations to return (default: 20)")),
	)
	s.AddTool(listTool, makeListConversationsHandler(ws))

	threadTool := mcp.NewTool("get_thread",
		mcp.WithDescription("Get a conversation's linear thread as numbered prompt/response pairs with their state (new, saved, ignored)"),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation id or unique prefix")),
	)
	s.AddTool(threadTool, makeGetThreadHandler(ws))

	stateTool := mcp.NewTool("set_pair_state",
		mcp.WithDescription("Save a pair as a Markdown note in the vault, ignore it, or reset it to new"),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation id or unique prefix")),
		mcp.WithNumber("pair",
			mcp.Required(),
			mcp.Description("1-based pair number from get_thread")),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("save, ignore or reset")),
		mcp.WithString("title",
			mcp.Description("Note title for save (default from title template)")),
		mcp.WithString("folder",
			mcp.Description("Vault folder for save (default from config)")),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for save (default from config)")),
	)
	s.AddTool(stateTool, makeSetPairStateHandler(ws))

	importTool := mcp.NewTool("import_export",
		mcp.WithDescription("Import a ChatGPT export (conversations.json or the unpacked export directory)"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to conversations.json or the export directory")),
		mcp.WithBoolean("force",
			mcp.Description("Re-import even if this file was imported before")),
	)
	s.AddTool(importTool, makeImportExportHandler(ws))

	return s
}

// StartServer serves the workspace over stdio until the client disconnects
func StartServer(ws *workspace.Workspace, version string) error {
	return server.ServeStdio(NewServer(ws, version))
}

func bindArgs(request mcp.CallToolRequest, v interface{}) error {
	argsBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func makeListConversationsHandler(ws *workspace.Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListConversationsArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		var f query.Filter
		f.Query = args.Query
		f.Limit = args.Limit
		if f.Limit <= 0 {
			f.Limit = 20
		}
		if args.Status != "" {
			s, err := models.ParseConversationStatus(strings.ToLower(args.Status))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			f.Status = &s
		}
		if args.Since != "" {
			since, err := query.ParseDate(args.Since, time.Now())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			f.Since = since
		}

		convs, err := ws.List(f.ListFilter, f.Status)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}

		conversations := []ConversationSummary{}
		for _, c := range convs {
			conversations = append(conversations, ConversationSummary{
				ConversationID: c.ConversationID,
				Title:          c.Title,
				Status:         c.Status.String(),
				Pairs:          c.AssistantCount,
				UpdatedAt:      formatTime(c.UpdatedAt),
			})
		}

		return jsonResult(map[string]interface{}{
			"conversations": conversations,
		})
	}
}

func makeGetThreadHandler(ws *workspace.Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetThreadArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		view, err := ws.Conversation(args.ConversationID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("conversation not found: %v", err)), nil
		}

		detail := ThreadDetail{
			ConversationID: view.ConversationID,
			Title:          view.Title,
			Status:         view.Status.String(),
			Pairs:          []PairDetail{},
		}
		for _, pv := range view.Pairs {
			pd := PairDetail{
				Pair:     pv.Index,
				ID:       pv.ID,
				State:    pv.State.String(),
				Prompt:   pv.Pair.Prompt,
				Response: pv.Pair.Response,
			}
			if pv.Pair.Timestamp > 0 {
				pd.Timestamp = formatTime(time.Unix(pv.Pair.Timestamp, 0))
			}
			detail.Pairs = append(detail.Pairs, pd)
		}

		return jsonResult(detail)
	}
}

func makeSetPairStateHandler(ws *workspace.Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SetPairStateArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		switch strings.ToLower(args.Action) {
		case "save":
			res, err := ws.Save(args.ConversationID, args.Pair, workspace.SaveOptions{
				Title:  args.Title,
				Folder: args.Folder,
				Tags:   args.Tags,
			})
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
			}
			return jsonResult(PairStateResult{ID: res.PairID, State: models.StateSaved.String(), Path: res.Path})

		case "ignore", "reset":
			state := models.StateIgnored
			if strings.ToLower(args.Action) == "reset" {
				state = models.StateNew
			}
			id, err := ws.SetState(args.ConversationID, args.Pair, state)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", args.Action, err)), nil
			}
			return jsonResult(PairStateResult{ID: id, State: state.String()})
		}

		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q (want save, ignore or reset)", args.Action)), nil
	}
}

func makeImportExportHandler(ws *workspace.Workspace) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ImportExportArgs
		if err := bindArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		// No progress output: stdout carries the protocol
		res, err := ws.Import(args.Path, args.Force, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
		}

		return jsonResult(map[string]interface{}{
			"file":          res.FilePath,
			"skipped":       res.Skipped,
			"conversations": res.Conversations,
			"pairs":         res.Pairs,
		})
	}
}
