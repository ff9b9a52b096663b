package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

var saveOpts workspace.SaveOptions

var saveCmd = &cobra.Command{
	Use:   "save <conversation-id> <pair#>",
	Short: "Save a prompt/response pair as a note",
	Long: `Write pair number <pair#> of a conversation (see 'threadkeep show') as a
Markdown note in the vault and mark it saved. The note name comes from the
title template unless --title is given; an existing note is never
overwritten, a numbered name like "Title (1).md" is used instead.

Examples:
  threadkeep save 6790a1b2 3
  threadkeep save 6790a1b2 3 --title "Channel basics" --folder Go --tags go,concurrency`,
	Args: cobra.ExactArgs(2),
	RunE: runSave,
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore <conversation-id> <pair#>",
	Short: "Mark a pair as not worth saving",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetState(args, models.StateIgnored)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <conversation-id> <pair#>",
	Short: "Return a pair to the new state",
	Long: `Return a saved or ignored pair to the new state. A saved note stays in
the vault; only the pair's state changes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetState(args, models.StateNew)
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(resetCmd)

	saveCmd.Flags().StringVar(&saveOpts.Title, "title", "", "Note title (default from title template)")
	saveCmd.Flags().StringVar(&saveOpts.Folder, "folder", "", "Vault folder (default from config)")
	saveCmd.Flags().StringVar(&saveOpts.Tags, "tags", "", "Comma-separated tags (default from config)")
}

func parsePairIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid pair number %q", s)
	}
	return n, nil
}

func runSave(cmd *cobra.Command, args []string) error {
	index, err := parsePairIndex(args[1])
	if err != nil {
		return err
	}

	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := ws.Save(args[0], index, saveOpts)
	if res.Path != "" {
		fmt.Printf("Saved pair #%d to %s\n", index, res.Path)
	}
	return err
}

func runSetState(args []string, state models.PairState) error {
	index, err := parsePairIndex(args[1])
	if err != nil {
		return err
	}

	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := ws.SetState(args[0], index, state); err != nil {
		return err
	}
	fmt.Printf("Pair #%d is now %s\n", index, state)
	return nil
}
