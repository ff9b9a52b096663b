package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/internal/core/note"
)

var (
	showFull  bool
	showWidth int
)

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation's prompt/response pairs",
	Long: `Show the linear thread of a conversation as numbered prompt/response
pairs with their state (new, saved, ignored). The pair numbers are what
save, ignore and reset take. Any unique prefix of the id works.

Examples:
  threadkeep show 6790a1b2
  threadkeep show 6790a1b2 --full`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showFull, "full", false, "Print whole prompts and responses")
	showCmd.Flags().IntVar(&showWidth, "width", 100, "Wrap width for --full output")
}

func runShow(cmd *cobra.Command, args []string) error {
	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	view, err := ws.Conversation(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", displayTitle(view.Title), statusBadge(view.Status))
	fmt.Printf("ID: %s\n", view.ConversationID)
	if !view.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", humanize.Time(view.UpdatedAt))
	}
	fmt.Printf("Pairs: %d\n\n", len(view.Pairs))

	if len(view.Pairs) == 0 {
		fmt.Println("No assistant replies in this conversation.")
		return nil
	}

	for _, pv := range view.Pairs {
		fmt.Printf("#%d  %s\n", pv.Index, stateBadge(pv.State))
		if showFull {
			if pv.Pair.Prompt != "" {
				fmt.Println("  Prompt:")
				fmt.Println(indent(wordwrap.String(pv.Pair.Prompt, showWidth), "    "))
			}
			fmt.Println("  Response:")
			fmt.Println(indent(wordwrap.String(pv.Pair.Response, showWidth), "    "))
		} else {
			if snippet := note.Snippet(pv.Pair.Prompt, 70); snippet != "" {
				fmt.Printf("  Q: %s\n", snippet)
			}
			fmt.Printf("  A: %s\n", note.Snippet(pv.Pair.Response, 70))
		}
		fmt.Println()
	}

	saved, err := ws.DB.SavedNotes(view.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to load saved notes: %w", err)
	}
	if len(saved) > 0 {
		fmt.Println("Saved notes:")
		for _, n := range saved {
			fmt.Printf("  %s (%s)\n", n.Path, humanize.Time(n.SavedAt))
		}
	}

	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
