package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neilberkman/threadkeep/internal/core/config"
	"github.com/neilberkman/threadkeep/internal/core/logger"
	"github.com/neilberkman/threadkeep/internal/core/workspace"
)

var (
	dbPath      string
	vaultPath   string
	configPath  string
	verbose     bool
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "threadkeep",
	Short: "Keep the useful parts of your ChatGPT history as notes",
	Long: `threadkeep - turn ChatGPT exports into Markdown notes

Imports conversations.json from a ChatGPT data export, linearizes each
conversation into prompt/response pairs, and saves the pairs you choose as
uniquely named notes in your vault. Every pair remembers whether it was
saved or ignored, so re-importing a newer export picks up where you left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	defaultDB := filepath.Join(home, ".config", "threadkeep", "catalog.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Database path")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/threadkeep/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if vaultPath != "" {
		cfg.Vault = vaultPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// openWorkspace loads config and opens the catalog, vault and pair state.
// The returned cleanup closes the catalog and flushes the logger.
func openWorkspace() (*workspace.Workspace, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var log *logger.Logger
	if cfg.LogFile != "" {
		log = logger.NewFile(cfg.LogLevel, cfg.LogFile)
	} else if log, err = logger.New(cfg.LogLevel); err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	ws, err := workspace.Open(workspace.Options{DBPath: dbPath, Config: cfg, Log: log})
	if err != nil {
		log.Sync()
		return nil, nil, err
	}

	return ws, func() {
		_ = ws.Close()
		log.Sync()
	}, nil
}
