package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/query"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

type conversationListItem struct {
	conv workspace.Summary
}

func (i conversationListItem) FilterValue() string {
	return i.conv.Title
}

func (i conversationListItem) Title() string {
	if strings.TrimSpace(i.conv.Title) != "" {
		return i.conv.Title
	}
	id := i.conv.ConversationID
	if len(id) > 12 {
		id = id[:12] + "..."
	}
	return id
}

func (i conversationListItem) Description() string {
	updated := "unknown"
	if !i.conv.UpdatedAt.IsZero() {
		updated = humanize.Time(i.conv.UpdatedAt)
	}
	return fmt.Sprintf("%d pairs | Updated: %s", i.conv.AssistantCount, updated)
}

// conversationDelegate renders the status badge next to each title
type conversationDelegate struct {
	list.DefaultDelegate
}

func (d conversationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(conversationListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := c.Title()
	desc := c.Description()

	if index == m.Index() {
		title = selectedItemStyle.Render("▸ " + title)
		desc = selectedItemStyle.Faint(true).Render("  " + desc)
	} else {
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	_, _ = fmt.Fprintf(w, "%s %s\n%s", title, statusBadge(c.conv.Status), desc)
}

func statusBadge(s models.ConversationStatus) string {
	switch s {
	case models.StatusPartial:
		return partialStyle.Render("[partial]")
	case models.StatusProcessed:
		return processedStyle.Render("[processed]")
	default:
		return unprocessedStyle.Render("[unprocessed]")
	}
}

func createConversationList(convs []workspace.Summary, width, height int) list.Model {
	items := make([]list.Item, len(convs))
	for i, c := range convs {
		items[i] = conversationListItem{conv: c}
	}

	delegate := conversationDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false) // Dedicated search with /

	return l
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if selected, ok := m.list.SelectedItem().(conversationListItem); ok {
			m.status = ""
			return m, loadConversation(m.ws, selected.conv.ConversationID, 0)
		}
		return m, nil

	case "/":
		m.mode = searchView
		return m, m.searchInput.Focus()

	case "esc":
		// Clear the active filter
		if m.searchInput.Value() != "" {
			m.searchInput.SetValue("")
			m.filter = query.Filter{}
			return m, loadConversations(m.ws, m.filter)
		}
		return m, nil
	}

	if !m.listReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewList() string {
	helpText := "↑/k up • ↓/j down • enter open • / search • q quit • ? more"

	var header string
	if q := strings.TrimSpace(m.searchInput.Value()); q != "" {
		header = searchMetaStyle.Render(fmt.Sprintf("Filter: %s (%d) • esc clear", q, len(m.conversations)))
	} else {
		header = titleStyle.Render(fmt.Sprintf("Conversations (%d)", len(m.conversations)))
	}

	if !m.listReady {
		return header + "\n\nLoading...\n" + helpText
	}
	if len(m.conversations) == 0 {
		return header + "\n\nNo conversations found. Run 'threadkeep import <export>' first.\n\n" + helpText
	}

	return header + "\n" + m.list.View() + "\n" + helpStyle.Render(helpText)
}
