package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/note"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

// header (3 lines + rule) and footer (status + help)
const detailChrome = 7

func createViewport(view *workspace.ConversationView, pairIdx, width, height int) viewport.Model {
	h := height - detailChrome
	if h < 3 {
		h = 3
	}
	vp := viewport.New(width, h)
	vp.SetContent(renderPair(view, pairIdx, width))
	return vp
}

func renderPair(view *workspace.ConversationView, pairIdx, width int) string {
	if len(view.Pairs) == 0 {
		return "This conversation has no assistant replies."
	}
	pv := view.Pairs[pairIdx]

	wrapWidth := width - 4
	if wrapWidth < 40 {
		wrapWidth = 40
	}

	var b strings.Builder
	if strings.TrimSpace(pv.Pair.Prompt) != "" {
		b.WriteString(userStyle.Render("▸ USER"))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(pv.Pair.Prompt, wrapWidth))
		b.WriteString("\n\n")
	}

	b.WriteString(assistantStyle.Render("▸ ASSISTANT"))
	if pv.Pair.Timestamp > 0 {
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(time.Unix(pv.Pair.Timestamp, 0).Format("Jan 2, 2006 3:04 PM")))
	}
	b.WriteString("\n")
	b.WriteString(wordwrap.String(pv.Pair.Response, wrapWidth))
	b.WriteString("\n")

	return b.String()
}

func stateBadge(s models.PairState) string {
	switch s {
	case models.StateSaved:
		return processedStyle.Render("[saved]")
	case models.StateIgnored:
		return ignoredStyle.Render("[ignored]")
	default:
		return unprocessedStyle.Render("[new]")
	}
}

func (m Model) selectedPair() (workspace.PairView, bool) {
	if m.current == nil || len(m.current.Pairs) == 0 {
		return workspace.PairView{}, false
	}
	return m.current.Pairs[m.pairIdx], true
}

func (m Model) showPair(idx int) Model {
	m.pairIdx = clampPair(idx, len(m.current.Pairs))
	m.viewport.SetContent(renderPair(m.current, m.pairIdx, m.width))
	m.viewport.GotoTop()
	m.status = ""
	return m
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.current.ConversationID
	pv, hasPair := m.selectedPair()

	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = listView
		m.current = nil
		return m, loadConversations(m.ws, m.filter)

	case key.Matches(msg, m.keys.Next):
		return m.showPair(m.pairIdx + 1), nil

	case key.Matches(msg, m.keys.Prev):
		return m.showPair(m.pairIdx - 1), nil

	case !hasPair:
		// Remaining keys act on a pair

	case key.Matches(msg, m.keys.Save):
		m.status = "Saving..."
		return m, savePair(m.ws, id, m.pairIdx, "")

	case key.Matches(msg, m.keys.SaveAs):
		m.naming = true
		m.titleInput.SetValue(note.Title(m.ws.Config.TitleTemplate, note.TitleData{
			ConversationTitle: m.current.Title,
			Prompt:            pv.Pair.Prompt,
			Timestamp:         pv.Pair.Timestamp,
			Index:             pv.Index,
		}))
		m.titleInput.CursorEnd()
		return m, m.titleInput.Focus()

	case key.Matches(msg, m.keys.Ignore):
		return m, setPairState(m.ws, id, m.pairIdx, models.StateIgnored)

	case key.Matches(msg, m.keys.Reset):
		return m, setPairState(m.ws, id, m.pairIdx, models.StateNew)

	case key.Matches(msg, m.keys.Copy):
		return m, copyToClipboard(pv.Pair.Response)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// updateNaming handles the title prompt opened by save-as
func (m Model) updateNaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.naming = false
		m.titleInput.Blur()
		return m, nil
	case "enter":
		m.naming = false
		m.titleInput.Blur()
		title := strings.TrimSpace(m.titleInput.Value())
		m.status = "Saving..."
		return m, savePair(m.ws, m.current.ConversationID, m.pairIdx, title)
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) viewDetail() string {
	if m.current == nil {
		return "Loading..."
	}

	var b strings.Builder

	// Header
	title := m.current.Title
	if strings.TrimSpace(title) == "" {
		title = m.current.ConversationID
	}
	b.WriteString(titleStyle.Render(title) + " " + statusBadge(m.current.Status) + "\n")
	if pv, ok := m.selectedPair(); ok {
		b.WriteString(fmt.Sprintf("Pair %d of %d %s\n", pv.Index, len(m.current.Pairs), stateBadge(pv.State)))
	} else {
		b.WriteString("No pairs\n")
	}
	b.WriteString(timestampStyle.Render(m.current.ConversationID) + "\n")
	b.WriteString(strings.Repeat("─", max(m.width, 20)) + "\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Footer
	switch {
	case m.naming:
		b.WriteString(searchHeaderStyle.Render("Title: ") + m.titleInput.View())
	case m.status != "":
		b.WriteString(m.status)
	default:
		b.WriteString(timestampStyle.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
