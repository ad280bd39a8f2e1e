package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ConfigPathEnvVar names an alternate config file when no .env sits next
	// to the executable.
	ConfigPathEnvVar = "SCREENCATCH"

	DefaultSelectorCommand = "screencatch-overlay"
	DefaultPreviewCommand  = "screencatch-preview"
	DefaultHotkey          = "Ctrl+Alt+S"
	DefaultListLimit       = 20
	DefaultMergeSpacing    = 10
	DefaultMergeBackground = "#ffffff"
)

type Config struct {
	OutputDir         string
	SelectorCommand   string
	PreviewCommand    string
	PromptDescription bool
	ShowPreview       bool
	MergeSpacing      int
	MergeBackground   string
	ListLimit         int
	Hotkey            string
	EnableFileLogging bool
}

// Load reads configuration from sources in priority order:
// 1) .env in the executable directory
// 2) if not found, the SCREENCATCH env var as a path to a config file
// 3) the process environment
func Load() (*Config, error) {
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		outputDir = wd
	}

	cfg := &Config{
		OutputDir:         outputDir,
		SelectorCommand:   getEnvWithDefault("SELECTOR_CMD", DefaultSelectorCommand),
		PreviewCommand:    getEnvWithDefault("PREVIEW_CMD", DefaultPreviewCommand),
		PromptDescription: envBool("PROMPT_DESCRIPTION", true),
		ShowPreview:       envBool("SHOW_PREVIEW", false),
		MergeSpacing:      envInt("MERGE_SPACING", DefaultMergeSpacing),
		MergeBackground:   getEnvWithDefault("MERGE_BACKGROUND", DefaultMergeBackground),
		ListLimit:         envInt("LIST_LIMIT", DefaultListLimit),
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		EnableFileLogging: envBool("ENABLE_FILE_LOGGING", false),
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return defaultValue
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
