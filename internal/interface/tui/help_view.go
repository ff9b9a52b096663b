package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = m.prevMode
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
threadkeep - Help
═════════════════

CONVERSATION LIST
─────────────────
  ↑/↓, j/k     Navigate conversations
  Enter        Review the conversation's pairs
  /            Search (words, status:, since:)
  esc          Clear search
  ?            Show this help
  q            Quit

PAIR VIEW
─────────
  s            Save pair as a note
  S            Save with a custom title
  i            Ignore pair
  r            Reset pair to new
  n/p          Next / previous pair
  c            Copy response to clipboard
  j/k          Scroll
  esc, q       Back to conversation list

Notes go to the configured vault folder and are never overwritten;
a clashing name becomes "Title (1).md".

Press any key to return
`

	return helpStyle.Render(help)
}
