// Package note renders a saved question/answer pair as a markdown document with
// YAML front matter.
package note

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceLabel is written to the source field of every note
const SourceLabel = "ChatGPT"

// Input is the content of one note
type Input struct {
	Title             string
	Tags              string // comma-separated
	Prompt            string
	Response          string
	ConversationTitle string
	Timestamp         int64 // seconds, 0 when unknown
}

type Options struct {
	IncludeTimestamps bool
	IncludeUserPrompt bool
}

// DefaultOptions matches the config defaults
func DefaultOptions() Options {
	return Options{IncludeTimestamps: false, IncludeUserPrompt: true}
}

// SplitTags splits a comma-separated tag list, trimming and dropping empty entries
func SplitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Render produces the note body: front matter, then the prompt and response sections
func Render(in Input, opts Options) (string, error) {
	header, err := frontMatter(in)
	if err != nil {
		return "", fmt.Errorf("failed to render front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")

	if opts.IncludeUserPrompt && strings.TrimSpace(in.Prompt) != "" {
		writeSection(&b, "Prompt", in.Prompt, in.Timestamp, opts.IncludeTimestamps)
		b.WriteString("\n")
	}
	writeSection(&b, "Response", in.Response, in.Timestamp, opts.IncludeTimestamps)

	return b.String(), nil
}

func writeSection(b *strings.Builder, heading, body string, ts int64, withTime bool) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	if withTime && ts > 0 {
		fmt.Fprintf(b, "*%s*\n\n", time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n")
}

func frontMatter(in Input) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
	}

	add("title", quoted(in.Title))

	tags := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, t := range SplitTags(in.Tags) {
		tags.Content = append(tags.Content, quoted(t))
	}
	add("tags", tags)

	if in.Timestamp > 0 {
		add("created", &yaml.Node{Kind: yaml.ScalarNode, Value: time.Unix(in.Timestamp, 0).UTC().Format("2006-01-02")})
	}
	add("source", &yaml.Node{Kind: yaml.ScalarNode, Value: SourceLabel})
	add("conversation", quoted(in.ConversationTitle))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}
