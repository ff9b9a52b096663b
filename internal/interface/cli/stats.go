package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/internal/core/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog and vault statistics",
	Long: `Display statistics about the threadkeep catalog and the vault's pair state.

Shows conversation and pair counts, how many pairs were saved or ignored,
date ranges, and storage info.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := ws.DB.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Println("Catalog Statistics")
	fmt.Println("==================")
	fmt.Println()

	fmt.Printf("Conversations:     %d\n", stats.TotalConversations)
	fmt.Printf("Messages:          %d\n", stats.TotalMessages)
	fmt.Printf("Q&A Pairs:         %d\n", stats.TotalAssistant)
	fmt.Printf("Notes Saved:       %d\n", stats.SavedNotes)
	fmt.Println()

	if stats.TotalConversations > 0 {
		if !stats.OldestConversation.IsZero() {
			fmt.Printf("Oldest Conversation: %s\n", stats.OldestConversation.Format("Jan 2, 2006 3:04 PM"))
		}
		if !stats.NewestConversation.IsZero() {
			fmt.Printf("Newest Conversation: %s\n", stats.NewestConversation.Format("Jan 2, 2006 3:04 PM"))
		}
		fmt.Println()
	}

	var saved, ignored int
	for _, p := range ws.State.Pairs() {
		switch p.State {
		case models.StateSaved:
			saved++
		case models.StateIgnored:
			ignored++
		}
	}
	fmt.Printf("Pair State:        %s\n", ws.State.Path())
	fmt.Printf("  Saved:           %d\n", saved)
	fmt.Printf("  Ignored:         %d\n", ignored)
	if last := ws.State.LastUpdated(); !last.IsZero() {
		fmt.Printf("  Last Change:     %s\n", humanize.Time(last))
	}
	fmt.Println()

	fmt.Printf("Imports:           %d\n", stats.Imports)
	if stats.LastImport != "" {
		fmt.Printf("Last Import:       %s\n", stats.LastImport)
	}
	fmt.Printf("Database Location: %s\n", dbPath)
	fmt.Printf("Database Size:     %s\n", humanize.Bytes(stats.SizeBytes))

	return nil
}
