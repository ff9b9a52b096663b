package note

import (
	"strings"
	"time"

	"github.com/cbroglie/mustache"
)

// DefaultTitleTemplate names a note after its conversation and the first line of the prompt
const DefaultTitleTemplate = `{{{conversation_title}}}{{#prompt_snippet}} - {{{prompt_snippet}}}{{/prompt_snippet}}`

const snippetLength = 50

// TitleData feeds the title template
type TitleData struct {
	ConversationTitle string
	Prompt            string
	Timestamp         int64
	Index             int // 1-based pair number within the thread
}

// Title renders the suggested note title. An empty template uses
// DefaultTitleTemplate; a template that fails or renders blank falls back to
// the conversation title, then "Untitled".
func Title(tmpl string, data TitleData) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultTitleTemplate
	}

	date := ""
	if data.Timestamp > 0 {
		date = time.Unix(data.Timestamp, 0).UTC().Format("2006-01-02")
	}

	templateData := map[string]interface{}{
		"conversation_title": strings.TrimSpace(data.ConversationTitle),
		"prompt_snippet":     Snippet(data.Prompt, snippetLength),
		"date":               date,
		"index":              data.Index,
	}

	title, err := mustache.Render(tmpl, templateData)
	if err == nil {
		title = strings.TrimSpace(title)
	}
	if err != nil || title == "" {
		title = strings.TrimSpace(data.ConversationTitle)
	}
	if title == "" {
		title = "Untitled"
	}
	return title
}

// Snippet returns the first non-blank line of s, cut to max runes
func Snippet(s string, max int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > max {
			return strings.TrimSpace(string(r[:max]))
		}
		return line
	}
	return ""
}
