package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/threadkeep/internal/core/query"
)

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.mode = listView
		m.searchErr = nil
		m.searchInput.Blur()
		return m, nil

	case "enter":
		f, err := query.Parse(m.searchInput.Value(), time.Now())
		if err != nil {
			m.searchErr = err
			return m, nil
		}
		m.filter = f
		m.searchErr = nil
		m.mode = listView
		m.searchInput.Blur()
		return m, loadConversations(m.ws, m.filter)
	}

	// Update text input (all other keys including j/k/q go here)
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.searchErr = nil
	return m, cmd
}

func (m Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(searchHeaderStyle.Render("Search: "))
	b.WriteString(m.searchInput.View())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(m.width, 20)))
	b.WriteString("\n\n")

	if m.searchErr != nil {
		b.WriteString(errorStyle.Render(m.searchErr.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(searchMetaStyle.Render(`Words search titles and message text.
  status:unprocessed|partial|processed   filter by progress
  since:<date>                           updated since (yesterday, last-week, 2024-01-15)

enter apply • esc cancel`))

	return b.String()
}
