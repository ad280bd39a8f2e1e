package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OUTPUT_DIR", "SELECTOR_CMD", "PREVIEW_CMD", "PROMPT_DESCRIPTION",
		"SHOW_PREVIEW", "MERGE_SPACING", "MERGE_BACKGROUND", "LIST_LIMIT",
		"HOTKEY", "ENABLE_FILE_LOGGING", ConfigPathEnvVar,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wd, _ := os.Getwd()
	if cfg.OutputDir != wd {
		t.Errorf("OutputDir = %q, want working directory %q", cfg.OutputDir, wd)
	}
	if cfg.SelectorCommand != DefaultSelectorCommand {
		t.Errorf("SelectorCommand = %q, want %q", cfg.SelectorCommand, DefaultSelectorCommand)
	}
	if cfg.PreviewCommand != DefaultPreviewCommand {
		t.Errorf("PreviewCommand = %q, want %q", cfg.PreviewCommand, DefaultPreviewCommand)
	}
	if !cfg.PromptDescription {
		t.Error("PromptDescription default = false, want true")
	}
	if cfg.ShowPreview {
		t.Error("ShowPreview default = true, want false")
	}
	if cfg.MergeSpacing != DefaultMergeSpacing {
		t.Errorf("MergeSpacing = %d, want %d", cfg.MergeSpacing, DefaultMergeSpacing)
	}
	if cfg.MergeBackground != DefaultMergeBackground {
		t.Errorf("MergeBackground = %q, want %q", cfg.MergeBackground, DefaultMergeBackground)
	}
	if cfg.ListLimit != DefaultListLimit {
		t.Errorf("ListLimit = %d, want %d", cfg.ListLimit, DefaultListLimit)
	}
	if cfg.Hotkey != DefaultHotkey {
		t.Errorf("Hotkey = %q, want %q", cfg.Hotkey, DefaultHotkey)
	}
	if cfg.EnableFileLogging {
		t.Error("EnableFileLogging default = true, want false")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTPUT_DIR", "/captures")
	t.Setenv("SELECTOR_CMD", "my-overlay --flag")
	t.Setenv("PROMPT_DESCRIPTION", "false")
	t.Setenv("SHOW_PREVIEW", "yes")
	t.Setenv("MERGE_SPACING", "25")
	t.Setenv("MERGE_BACKGROUND", "#000000")
	t.Setenv("LIST_LIMIT", "5")
	t.Setenv("HOTKEY", "Ctrl+Shift+X")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "/captures" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.SelectorCommand != "my-overlay --flag" {
		t.Errorf("SelectorCommand = %q", cfg.SelectorCommand)
	}
	if cfg.PromptDescription {
		t.Error("PROMPT_DESCRIPTION=false not honored")
	}
	if !cfg.ShowPreview {
		t.Error("SHOW_PREVIEW=yes not honored")
	}
	if cfg.MergeSpacing != 25 {
		t.Errorf("MergeSpacing = %d, want 25", cfg.MergeSpacing)
	}
	if cfg.MergeBackground != "#000000" {
		t.Errorf("MergeBackground = %q", cfg.MergeBackground)
	}
	if cfg.ListLimit != 5 {
		t.Errorf("ListLimit = %d, want 5", cfg.ListLimit)
	}
	if cfg.Hotkey != "Ctrl+Shift+X" {
		t.Errorf("Hotkey = %q", cfg.Hotkey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "settings.env")
	content := "SELECTOR_CMD=file-overlay\nMERGE_SPACING=7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SelectorCommand != "file-overlay" {
		t.Errorf("SelectorCommand = %q, want value from config file", cfg.SelectorCommand)
	}
	if cfg.MergeSpacing != 7 {
		t.Errorf("MergeSpacing = %d, want 7 from config file", cfg.MergeSpacing)
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"banana", true, false},
		{" true ", false, true},
	}
	for _, tt := range tests {
		t.Setenv("BOOL_UNDER_TEST", tt.value)
		if got := envBool("BOOL_UNDER_TEST", tt.fallback); got != tt.want {
			t.Errorf("envBool(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
		}
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 20},
		{"0", 0},
		{"42", 42},
		{"-3", 20},
		{"abc", 20},
	}
	for _, tt := range tests {
		t.Setenv("INT_UNDER_TEST", tt.value)
		if got := envInt("INT_UNDER_TEST", 20); got != tt.want {
			t.Errorf("envInt(%q, 20) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
