package note

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type header struct {
	Title        string   `yaml:"title"`
	Tags         []string `yaml:"tags"`
	Created      string   `yaml:"created"`
	Source       string   `yaml:"source"`
	Conversation string   `yaml:"conversation"`
}

func splitNote(t *testing.T, body string) (header, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(body, "---\n"), "missing front matter: %q", body)
	rest := strings.TrimPrefix(body, "---\n")
	end := strings.Index(rest, "---\n")
	require.GreaterOrEqual(t, end, 0, "unterminated front matter")

	var h header
	require.NoError(t, yaml.Unmarshal([]byte(rest[:end]), &h))
	return h, rest[end+len("---\n"):]
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,,c, ", []string{"a", "b", "c"}},
		{",,,", nil},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SplitTags(tt.in), "SplitTags(%q)", tt.in)
	}
}

func TestRender_FrontMatter(t *testing.T) {
	body, err := Render(Input{
		Title:             "Channels",
		Tags:              "go, chatgpt,",
		Prompt:            "What is a channel?",
		Response:          "A typed conduit.",
		ConversationTitle: "Go channels",
		Timestamp:         1700000000,
	}, DefaultOptions())
	require.NoError(t, err)

	h, rest := splitNote(t, body)
	require.Equal(t, "Channels", h.Title)
	require.Equal(t, []string{"go", "chatgpt"}, h.Tags)
	require.Equal(t, "2023-11-14", h.Created)
	require.Equal(t, "ChatGPT", h.Source)
	require.Equal(t, "Go channels", h.Conversation)
	require.Contains(t, body, `tags: ["go", "chatgpt"]`)

	require.Equal(t, "\n## Prompt\n\nWhat is a channel?\n\n## Response\n\nA typed conduit.\n", rest)
}

func TestRender_EscapesQuotes(t *testing.T) {
	in := Input{
		Title:             `He said "hi": yes`,
		Tags:              `a"b, c\d`,
		Response:          "r",
		ConversationTitle: `"quoted" title`,
	}
	body, err := Render(in, DefaultOptions())
	require.NoError(t, err)

	h, _ := splitNote(t, body)
	require.Equal(t, in.Title, h.Title)
	require.Equal(t, []string{`a"b`, `c\d`}, h.Tags)
	require.Equal(t, in.ConversationTitle, h.Conversation)
}

func TestRender_EmptyTagsAndNoTimestamp(t *testing.T) {
	body, err := Render(Input{Title: "t", Response: "r"}, DefaultOptions())
	require.NoError(t, err)

	h, _ := splitNote(t, body)
	require.Empty(t, h.Tags)
	require.Empty(t, h.Created)
	require.Contains(t, body, "tags: []")
}

func TestRender_PromptOmitted(t *testing.T) {
	in := Input{Title: "t", Prompt: "question", Response: "answer"}

	body, err := Render(in, Options{IncludeUserPrompt: false})
	require.NoError(t, err)
	require.NotContains(t, body, "## Prompt")
	require.NotContains(t, body, "question")
	require.Contains(t, body, "## Response\n\nanswer\n")

	in.Prompt = "   "
	body, err = Render(in, Options{IncludeUserPrompt: true})
	require.NoError(t, err)
	require.NotContains(t, body, "## Prompt")
}

func TestRender_Timestamps(t *testing.T) {
	in := Input{Title: "t", Prompt: "q", Response: "a", Timestamp: 1700000000}

	body, err := Render(in, Options{IncludeTimestamps: true, IncludeUserPrompt: true})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(body, "*2023-11-14 22:13:20 UTC*"))

	body, err = Render(in, Options{IncludeUserPrompt: true})
	require.NoError(t, err)
	require.NotContains(t, body, "22:13:20")
}

func TestTitle(t *testing.T) {
	data := TitleData{ConversationTitle: "Go channels", Prompt: "\n  What is a channel?\nmore", Timestamp: 1700000000, Index: 2}

	require.Equal(t, "Go channels - What is a channel?", Title("", data))
	require.Equal(t, "2023-11-14 #2 Go channels", Title("{{date}} #{{index}} {{{conversation_title}}}", data))

	noPrompt := data
	noPrompt.Prompt = ""
	require.Equal(t, "Go channels", Title("", noPrompt))

	require.Equal(t, "Go channels", Title("{{missing}}", data))
	require.Equal(t, "Untitled", Title("", TitleData{}))
}

func TestSnippet(t *testing.T) {
	require.Equal(t, "", Snippet("  \n\t\n", 10))
	require.Equal(t, "second", Snippet("\n second \nthird", 10))
	require.Equal(t, "abcde", Snippet(strings.Repeat("abcdefgh", 3), 5))
	require.Equal(t, "héll", Snippet("héllo", 4))
}
