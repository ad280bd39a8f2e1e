package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"screencatch/artifact"
	"screencatch/clipboard"
	"screencatch/config"
	"screencatch/hotkey"
	"screencatch/ipc"
	"screencatch/logutil"
	"screencatch/session"
)

// listenHotkey is swapped out in tests; gohook needs a real input device.
var listenHotkey = hotkey.Listen

type captureOptions struct {
	outputDir     string
	noDescription bool
	preview       bool
	spacing       int
	background    string
	selectorCmd   string
	previewCmd    string
	copyPath      bool
	jsonOutput    bool
	verbose       bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cmd := newRootCmd()
	cmd.SetArgs(os.Args[1:])
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	opts := &captureOptions{}
	cmd := &cobra.Command{
		Use:           "screencatch",
		Short:         "Capture one or more screen regions into a single image",
		Long: "screencatch delegates interactive region selection to an external overlay\n" +
			"process, captures the selected regions from a single screen grab, merges\n" +
			"multiple regions into one composite, and writes the image with a JSON\n" +
			"metadata sidecar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, *opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory to save captures (default: OUTPUT_DIR or current directory)")
	cmd.Flags().BoolVar(&opts.noDescription, "no-description", false, "Skip the description prompt")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "Show a preview after capture and allow recapture")
	cmd.Flags().IntVar(&opts.spacing, "spacing", config.DefaultMergeSpacing, "Spacing between merged images in pixels")
	cmd.Flags().StringVar(&opts.background, "background", config.DefaultMergeBackground, "Background color for merged images (#rrggbb)")
	cmd.Flags().StringVar(&opts.selectorCmd, "selector", "", "Selection overlay executable (default: SELECTOR_CMD)")
	cmd.Flags().StringVar(&opts.previewCmd, "preview-cmd", "", "Preview/confirm executable (default: PREVIEW_CMD)")
	cmd.Flags().BoolVar(&opts.copyPath, "copy-path", false, "Copy the saved file path to the clipboard on success")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the session result as JSON to stdout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging to stderr")

	cmd.AddCommand(newListCmd(), newMergeCmd(), newWatchCmd())
	return cmd
}

// setupLogging wires the stdlib logger: stderr when verbose, otherwise the
// rotating debug file (or discard) per config.
func setupLogging(verbose bool, cfg *config.Config) {
	if verbose {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		return
	}
	logutil.Setup(cfg.EnableFileLogging)
}

// resolveCaptureConfig layers flag overrides on top of the loaded config.
func resolveCaptureConfig(cmd *cobra.Command, opts captureOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.noDescription {
		cfg.PromptDescription = false
	}
	if opts.preview {
		cfg.ShowPreview = true
	}
	if cmd.Flags().Changed("spacing") {
		cfg.MergeSpacing = opts.spacing
	}
	if cmd.Flags().Changed("background") {
		cfg.MergeBackground = opts.background
	}
	if opts.selectorCmd != "" {
		cfg.SelectorCommand = opts.selectorCmd
	}
	if opts.previewCmd != "" {
		cfg.PreviewCommand = opts.previewCmd
	}
	return cfg, nil
}

// captureResult is the JSON document printed with --json, mirroring the
// metadata sidecar plus the session outcome.
type captureResult struct {
	Success             bool   `json:"success"`
	Cancelled           bool   `json:"cancelled,omitempty"`
	Message             string `json:"message,omitempty"`
	Filepath            string `json:"filepath,omitempty"`
	MetadataFile        string `json:"metadata_file,omitempty"`
	Description         string `json:"description,omitempty"`
	CaptureCount        int    `json:"capture_count,omitempty"`
	Merged              bool   `json:"merged,omitempty"`
	RecaptureIterations int    `json:"recapture_iterations"`
}

func runCapture(cmd *cobra.Command, opts captureOptions) error {
	cfg, err := resolveCaptureConfig(cmd, opts)
	if err != nil {
		return err
	}
	setupLogging(opts.verbose, cfg)

	result := runSession(cmd.Context(), cfg, opts.verbose)

	if opts.jsonOutput {
		out := captureResult{
			Success:             result.Success,
			Cancelled:           result.Cancelled,
			Message:             result.Message,
			RecaptureIterations: result.RecaptureCount,
		}
		if result.Artifact != nil {
			out.Filepath = result.Artifact.Filepath
			out.MetadataFile = result.Artifact.MetadataPath
			out.Description = result.Artifact.Metadata.Description
			out.CaptureCount = result.Artifact.Metadata.Captures
			out.Merged = result.Artifact.Metadata.Merged
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		if !result.Success {
			os.Exit(1)
		}
		return nil
	}

	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}

	art := result.Artifact
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved to: %s\n", art.Filepath)
	if art.Metadata.Merged {
		fmt.Fprintf(cmd.ErrOrStderr(), "Merged %d captures\n", art.Metadata.Captures)
	}
	if result.RecaptureCount > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Recaptured %d time(s)\n", result.RecaptureCount)
	}
	fmt.Fprintln(cmd.OutOrStdout(), art.Filepath)

	if opts.copyPath {
		if err := clipboard.Init(); err != nil {
			log.Printf("Clipboard unavailable: %v", err)
		} else if err := clipboard.Write(art.Filepath); err != nil {
			log.Printf("Clipboard write failed: %v", err)
		}
	}
	return nil
}

// runSession assembles the IPC-backed session from config and executes it.
func runSession(ctx context.Context, cfg *config.Config, verbose bool) session.Result {
	background, err := parseBackground(cfg.MergeBackground)
	if err != nil {
		return session.Result{Message: err.Error()}
	}

	stdio := ipc.StdioDiscard
	if verbose {
		stdio = ipc.StdioInherit
	}
	channel := &ipc.Channel{Stdio: stdio}

	return session.Run(ctx, session.Options{
		OutputDir:         cfg.OutputDir,
		PromptDescription: cfg.PromptDescription,
		ShowPreview:       cfg.ShowPreview,
		Spacing:           cfg.MergeSpacing,
		Background:        background,
		Exchange: func(ctx context.Context, withDescription bool) (ipc.Result, error) {
			var args []string
			if withDescription {
				args = append(args, "--with-description")
			}
			return channel.Invoke(ctx, cfg.SelectorCommand, args)
		},
		Confirm: func(ctx context.Context, a *artifact.Artifact) bool {
			description := a.Metadata.Description
			if description == "" {
				description = "Untitled"
			}
			args := []string{a.Filepath, description, strconv.Itoa(a.Metadata.Captures)}
			return channel.Confirm(ctx, cfg.PreviewCommand, args)
		},
	})
}

func newWatchCmd() *cobra.Command {
	opts := &captureOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a capture session on each hotkey press",
		Long: "watch stays resident and starts one capture session every time the\n" +
			"configured hotkey combination is pressed. Sessions run sequentially.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, *opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory to save captures")
	cmd.Flags().BoolVar(&opts.noDescription, "no-description", false, "Skip the description prompt")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "Show a preview after each capture")
	cmd.Flags().StringVar(&opts.selectorCmd, "selector", "", "Selection overlay executable")
	cmd.Flags().StringVar(&opts.previewCmd, "preview-cmd", "", "Preview/confirm executable")
	cmd.Flags().String("hotkey", "", "Hotkey combination (default: HOTKEY or "+config.DefaultHotkey+")")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging to stderr")

	return cmd
}

func runWatch(cmd *cobra.Command, opts captureOptions) error {
	cfg, err := resolveCaptureConfig(cmd, opts)
	if err != nil {
		return err
	}
	setupLogging(opts.verbose, cfg)

	if combo, _ := cmd.Flags().GetString("hotkey"); combo != "" {
		cfg.Hotkey = combo
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Press %s to capture; Ctrl+C to quit\n", cfg.Hotkey)
	return listenHotkey(cfg.Hotkey, func() {
		result := runSession(cmd.Context(), cfg, opts.verbose)
		switch {
		case result.Success:
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved to: %s\n", result.Artifact.Filepath)
		case result.Cancelled:
			fmt.Fprintf(cmd.ErrOrStderr(), "Capture cancelled\n")
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "Capture failed: %s\n", result.Message)
		}
	})
}

func newListCmd() *cobra.Command {
	var (
		dir        string
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List saved captures, newest first",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if dir == "" {
				dir = cfg.OutputDir
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.ListLimit
			}
			return runList(cmd.OutOrStdout(), dir, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&dir, "output-dir", "o", "", "Directory to list (default: OUTPUT_DIR or current directory)")
	cmd.Flags().IntVar(&limit, "limit", config.DefaultListLimit, "Maximum number of captures to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the listing as JSON")
	return cmd
}

func runList(w io.Writer, dir string, limit int, jsonOutput bool) error {
	listing := artifact.List(dir, limit)

	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(listing)
	}

	if listing.Total == 0 {
		fmt.Fprintln(w, "No captures found")
		return nil
	}
	for _, entry := range listing.Captures {
		line := fmt.Sprintf("%s  %s", entry.ModTime.Format("2006-01-02 15:04:05"), entry.Filepath)
		if entry.Description != "" {
			line += "  " + entry.Description
		}
		if entry.Merged {
			line += fmt.Sprintf("  (%d regions)", entry.Captures)
		}
		fmt.Fprintln(w, line)
	}
	if listing.Total > len(listing.Captures) {
		fmt.Fprintf(w, "Showing %d of %d captures\n", len(listing.Captures), listing.Total)
	}
	return nil
}
