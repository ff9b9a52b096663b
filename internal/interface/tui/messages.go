package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/query"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

type errMsg struct {
	err error
}

type conversationsLoadedMsg struct {
	conversations []workspace.Summary
}

type conversationLoadedMsg struct {
	view    *workspace.ConversationView
	pairIdx int
}

type pairChangedMsg struct {
	conversationID string
	pairIdx        int
	status         string
	err            error
}

type copiedMsg struct {
	err error
}

func loadConversations(ws *workspace.Workspace, f query.Filter) tea.Cmd {
	return func() tea.Msg {
		convs, err := ws.List(f.ListFilter, f.Status)
		if err != nil {
			return errMsg{err}
		}
		return conversationsLoadedMsg{convs}
	}
}

func loadConversation(ws *workspace.Workspace, id string, pairIdx int) tea.Cmd {
	return func() tea.Msg {
		view, err := ws.Conversation(id)
		if err != nil {
			return errMsg{err}
		}
		return conversationLoadedMsg{view: view, pairIdx: pairIdx}
	}
}

// savePair writes the pair as a note. Failures are reported in the status
// line rather than replacing the whole view.
func savePair(ws *workspace.Workspace, id string, pairIdx int, title string) tea.Cmd {
	return func() tea.Msg {
		res, err := ws.Save(id, pairIdx+1, workspace.SaveOptions{Title: title})
		msg := pairChangedMsg{conversationID: id, pairIdx: pairIdx, err: err}
		if res.Path != "" {
			msg.status = "Saved to " + res.Path
		}
		return msg
	}
}

func setPairState(ws *workspace.Workspace, id string, pairIdx int, state models.PairState) tea.Cmd {
	return func() tea.Msg {
		_, err := ws.SetState(id, pairIdx+1, state)
		return pairChangedMsg{
			conversationID: id,
			pairIdx:        pairIdx,
			status:         "Pair marked " + state.String(),
			err:            err,
		}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}
