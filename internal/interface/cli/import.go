package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/internal/core/importer"
)

var importForce bool

var importCmd = &cobra.Command{
	Use:   "import <conversations.json|export-dir>",
	Short: "Import a ChatGPT export",
	Long: `Import conversations from a ChatGPT data export.

Accepts the conversations.json file or the unpacked export directory that
contains it. A file that was already imported is skipped unless --force is
given; re-importing replaces stored conversations without touching pair state.

Examples:
  threadkeep import ~/Downloads/chatgpt-export
  threadkeep import conversations.json --force`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importForce, "force", false, "Re-import even if this file was imported before")
}

func runImport(cmd *cobra.Command, args []string) error {
	ws, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Importing from: %s\n", args[0])
	fmt.Printf("Database: %s\n\n", dbPath)

	spin := newSpinner(os.Stderr, "Parsing export...")
	spin.Start()
	progress := &parseThenProgress{spin: spin, ProgressReporter: importer.NewProgressReporter(os.Stdout)}

	res, err := ws.Import(args[0], importForce, progress)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if res.Skipped {
		fmt.Printf("%s was already imported (use --force to re-import)\n", res.FilePath)
		return nil
	}

	fmt.Printf("%d prompt/response pairs", res.Pairs)
	if res.Empty > 0 {
		fmt.Printf(", %d empty conversation(s)", res.Empty)
	}
	fmt.Println()
	return nil
}

// parseThenProgress stops the parse spinner once per-conversation progress begins
type parseThenProgress struct {
	spin *spinner
	*importer.ProgressReporter
}

func (p *parseThenProgress) Start(total int) {
	p.spin.Stop()
	p.ProgressReporter.Start(total)
}
