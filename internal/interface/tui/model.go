package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/threadkeep/internal/core/query"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

type viewMode int

const (
	listView viewMode = iota
	detailView
	searchView
	helpView
)

type Model struct {
	ws       *workspace.Workspace
	mode     viewMode
	prevMode viewMode // where help returns to
	list     list.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int
	err      error
	status   string // one-line feedback after an action

	// List data
	listReady     bool
	conversations []workspace.Summary
	filter        query.Filter
	searchInput   textinput.Model
	searchErr     error

	// Current conversation
	current    *workspace.ConversationView
	pairIdx    int // 0-based into current.Pairs
	naming     bool
	titleInput textinput.Model
}

func New(ws *workspace.Workspace) Model {
	search := textinput.New()
	search.Placeholder = "terms status:partial since:last-week"
	search.CharLimit = 200

	title := textinput.New()
	title.Placeholder = "Note title"
	title.CharLimit = 200

	return Model{
		ws:          ws,
		mode:        listView,
		help:        help.New(),
		keys:        defaultKeyMap(),
		searchInput: search,
		titleInput:  title,
	}
}

func (m Model) Init() tea.Cmd {
	return loadConversations(m.ws, m.filter)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.listReady {
			m.list.SetSize(msg.Width, listHeight(msg.Height))
		}
		if m.current != nil {
			m.viewport = createViewport(m.current, m.pairIdx, m.width, m.height)
		}
		return m, nil

	case tea.KeyMsg:
		// Text inputs get every key
		if m.mode == searchView {
			return m.updateSearch(msg)
		}
		if m.naming {
			return m.updateNaming(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.mode == listView {
				return m, tea.Quit
			}
			// In other views, go back to list
			m.mode = listView
			return m, loadConversations(m.ws, m.filter)
		case "?":
			if m.mode != helpView {
				m.prevMode = m.mode
				m.mode = helpView
			}
			return m, nil
		}

		// Mode-specific key handling
		switch m.mode {
		case listView:
			return m.updateList(msg)
		case detailView:
			return m.updateDetail(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case conversationsLoadedMsg:
		cursor := 0
		if m.listReady {
			cursor = m.list.Index()
		}
		m.conversations = msg.conversations
		m.list = createConversationList(msg.conversations, m.width, listHeight(m.height))
		if cursor < len(msg.conversations) {
			m.list.Select(cursor)
		}
		m.listReady = true
		return m, nil

	case conversationLoadedMsg:
		m.current = msg.view
		m.pairIdx = clampPair(msg.pairIdx, len(msg.view.Pairs))
		m.viewport = createViewport(m.current, m.pairIdx, m.width, m.height)
		m.mode = detailView
		return m, nil

	case pairChangedMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = errorStyle.Render(msg.err.Error())
		}
		// Reload to pick up new pair states
		return m, loadConversation(m.ws, msg.conversationID, msg.pairIdx)

	case copiedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("copy failed: " + msg.err.Error())
		} else {
			m.status = "Response copied to clipboard"
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit"
	}

	switch m.mode {
	case listView:
		return m.viewList()
	case detailView:
		return m.viewDetail()
	case searchView:
		return m.viewSearch()
	case helpView:
		return m.viewHelp()
	}

	return ""
}

// listHeight leaves room for the filter line and the help line
func listHeight(height int) int {
	if height < 4 {
		return 1
	}
	return height - 2
}

func clampPair(idx, n int) int {
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
