package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neilberkman/threadkeep/internal/core/note"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Folder != DefaultFolder || cfg.Tags != DefaultTags {
		t.Errorf("expected defaults, got folder=%q tags=%q", cfg.Folder, cfg.Tags)
	}
	if !cfg.IncludeUserPrompt || cfg.IncludeTimestamps {
		t.Errorf("unexpected default switches: %+v", cfg)
	}
	if cfg.TitleTemplate != note.DefaultTitleTemplate {
		t.Errorf("expected default title template, got %q", cfg.TitleTemplate)
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
vault = "/tmp/vault"
folder = "Inbox/AI"
tags = "ai, notes"
include_timestamps = true
include_user_prompt = false
title_template = "{{{conversation_title}}}"
max_collisions = 25
log_level = "debug"
log_file = "/tmp/threadkeep.log"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"vault", cfg.Vault, "/tmp/vault"},
		{"folder", cfg.Folder, "Inbox/AI"},
		{"tags", cfg.Tags, "ai, notes"},
		{"include_timestamps", cfg.IncludeTimestamps, true},
		{"include_user_prompt", cfg.IncludeUserPrompt, false},
		{"title_template", cfg.TitleTemplate, "{{{conversation_title}}}"},
		{"max_collisions", cfg.MaxCollisions, 25},
		{"log_level", cfg.LogLevel, "debug"},
		{"log_file", cfg.LogFile, "/tmp/threadkeep.log"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	opts := cfg.NoteOptions()
	if !opts.IncludeTimestamps || opts.IncludeUserPrompt {
		t.Errorf("NoteOptions mismatch: %+v", opts)
	}
}

func TestLoadFile_ExplicitFalseKeepsFalse(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "include_timestamps = false\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.IncludeTimestamps {
		t.Error("expected include_timestamps false")
	}
	if !cfg.IncludeUserPrompt {
		t.Error("unset include_user_prompt should keep its default")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "folder = ", "failed to parse"},
		{"unknown key", "colour = \"red\"\n", "unknown config key"},
		{"wrong type", "max_collisions = \"many\"\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/vault"); got != filepath.Join(home, "vault") {
		t.Errorf("expandHome: got %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome changed absolute path: %q", got)
	}
}
