package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/internal/core/db"
	"github.com/neilberkman/threadkeep/internal/core/models"
	"github.com/neilberkman/threadkeep/internal/core/query"
)

var (
	listLimit  int
	listSince  string
	listStatus string
	listQuery  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported conversations",
	Long: `List imported conversations, most recently updated first.

Shows each conversation's id, title, pair count and processing status.
--since accepts natural language ("last week", "3 days ago", "2024-01-15").

Examples:
  threadkeep list
  threadkeep list --status unprocessed --limit 10
  threadkeep list --since "last month" --query kubernetes`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of conversations to display")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only conversations updated since this date")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: unprocessed, partial, processed")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Full-text search over titles and messages")
}

func runList(cmd *cobra.Command, args []string) error {
	filter := db.ListFilter{Query: listQuery, Limit: listLimit}

	if listSince != "" {
		since, err := query.ParseDate(listSince, time.Now())
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filter.Since = since
	}

	var status *models.ConversationStatus
	if listStatus != "" {
		s, err := models.ParseConversationStatus(listStatus)
		if err != nil {
			return err
		}
		status = &s
	}

	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	convs, err := ws.List(filter, status)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(convs) == 0 {
		fmt.Println("No conversations found. Run 'threadkeep import <export>' to import some.")
		return nil
	}

	fmt.Printf("Showing %d conversation(s)\n\n", len(convs))

	for i, c := range convs {
		fmt.Printf("[%d] %s  %s\n", i+1, shortID(c.ConversationID), statusBadge(c.Status))
		fmt.Printf("    %s\n", truncateTitle(displayTitle(c.Title), 80))
		fmt.Printf("    Pairs: %d  Messages: %d\n", c.AssistantCount, c.MessageCount)
		if !c.UpdatedAt.IsZero() {
			fmt.Printf("    Updated: %s\n", humanize.Time(c.UpdatedAt))
		}
		fmt.Println()
	}

	return nil
}

var (
	badgeUnprocessed = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	badgePartial     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	badgeProcessed   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badgeIgnored     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func statusBadge(s models.ConversationStatus) string {
	switch s {
	case models.StatusPartial:
		return badgePartial.Render("[partial]")
	case models.StatusProcessed:
		return badgeProcessed.Render("[processed]")
	default:
		return badgeUnprocessed.Render("[unprocessed]")
	}
}

func stateBadge(s models.PairState) string {
	switch s {
	case models.StateSaved:
		return badgeProcessed.Render("saved")
	case models.StateIgnored:
		return badgeIgnored.Render("ignored")
	default:
		return badgeUnprocessed.Render("new")
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// truncateTitle flattens whitespace and cuts at a word boundary
func truncateTitle(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")

	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	truncated := string(r[:maxLen])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)-20 && lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}
