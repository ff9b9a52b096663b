package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/neilberkman/threadkeep/internal/core/allocator"
	"github.com/neilberkman/threadkeep/internal/core/note"
)

const (
	DefaultFolder   = "ChatGPT"
	DefaultTags     = "chatgpt"
	DefaultLogLevel = "warn"
)

type Config struct {
	Vault             string // Root of the note vault; notes and the pair state live here
	Folder            string // Vault folder new notes go to
	Tags              string // Comma-separated default tags
	IncludeTimestamps bool
	IncludeUserPrompt bool
	TitleTemplate     string
	MaxCollisions     int
	LogLevel          string
	LogFile           string // Rotated log file; empty logs to stderr
}

type tomlConfig struct {
	Vault             string `toml:"vault"`
	Folder            string `toml:"folder"`
	Tags              string `toml:"tags"`
	IncludeTimestamps *bool  `toml:"include_timestamps"`
	IncludeUserPrompt *bool  `toml:"include_user_prompt"`
	TitleTemplate     string `toml:"title_template"`
	MaxCollisions     int    `toml:"max_collisions"`
	LogLevel          string `toml:"log_level"`
	LogFile           string `toml:"log_file"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		Folder:            DefaultFolder,
		Tags:              DefaultTags,
		IncludeTimestamps: false,
		IncludeUserPrompt: true,
		TitleTemplate:     note.DefaultTitleTemplate,
		MaxCollisions:     allocator.DefaultMaxAttempts,
		LogLevel:          DefaultLogLevel,
	}
}

// Dir is ~/.config/threadkeep
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "threadkeep"), nil
}

// Load reads config from ~/.config/threadkeep/
func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return Default(), nil // Use defaults
	}

	cfg, err := LoadFile(filepath.Join(configDir, "config.toml"))
	if err != nil {
		return nil, err
	}

	// If custom title template exists, use it
	if data, err := os.ReadFile(filepath.Join(configDir, "title_template.txt")); err == nil {
		if tmpl := strings.TrimSpace(string(data)); tmpl != "" {
			cfg.TitleTemplate = tmpl
		}
	}

	return cfg, nil
}

// LoadFile reads a TOML config file over the defaults. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	var tc tomlConfig
	md, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	if tc.Vault != "" {
		cfg.Vault = expandHome(tc.Vault)
	}
	if tc.Folder != "" {
		cfg.Folder = tc.Folder
	}
	if tc.Tags != "" {
		cfg.Tags = tc.Tags
	}
	if tc.IncludeTimestamps != nil {
		cfg.IncludeTimestamps = *tc.IncludeTimestamps
	}
	if tc.IncludeUserPrompt != nil {
		cfg.IncludeUserPrompt = *tc.IncludeUserPrompt
	}
	if tc.TitleTemplate != "" {
		cfg.TitleTemplate = tc.TitleTemplate
	}
	if tc.MaxCollisions > 0 {
		cfg.MaxCollisions = tc.MaxCollisions
	}
	if tc.LogLevel != "" {
		cfg.LogLevel = tc.LogLevel
	}
	if tc.LogFile != "" {
		cfg.LogFile = expandHome(tc.LogFile)
	}

	return cfg, nil
}

// NoteOptions returns the rendering switches
func (c *Config) NoteOptions() note.Options {
	return note.Options{IncludeTimestamps: c.IncludeTimestamps, IncludeUserPrompt: c.IncludeUserPrompt}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
