package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxcontent/internal/attachment"
)

// pipelineFlags are the attachment settings shared by serve, extract and
// sweep.
type pipelineFlags struct {
	workDir          string
	maxResponseBytes int
	maxSheets        int
	maxRowsPerSheet  int
	maxTextLength    int
	extractTimeout   time.Duration
	retention        time.Duration
	includeRaw       bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	defaults := attachment.DefaultConfig()
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "Directory for spilled attachments. Can also use "+attachment.EnvWorkDir+" env var.")
	cmd.Flags().IntVar(&f.maxResponseBytes, "max-response-bytes", defaults.MaxSize, "Largest response returned inline; larger results are written to the work directory. Can also use "+attachment.EnvMaxResponseBytes+" env var.")
	cmd.Flags().IntVar(&f.maxSheets, "max-sheets", defaults.MaxSheets, "Sheets extracted per workbook. Can also use "+attachment.EnvMaxSheets+" env var.")
	cmd.Flags().IntVar(&f.maxRowsPerSheet, "max-rows", defaults.MaxRowsPerSheet, "Rows extracted per sheet. Can also use "+attachment.EnvMaxRowsPerSheet+" env var.")
	cmd.Flags().IntVar(&f.maxTextLength, "max-text-length", defaults.MaxTextLength, "Characters of document text kept. Can also use "+attachment.EnvMaxTextLength+" env var.")
	cmd.Flags().DurationVar(&f.extractTimeout, "extract-timeout", defaults.ExtractTimeout, "Time limit for a single document extraction, 0 for none. Can also use "+attachment.EnvExtractTimeout+" env var.")
	cmd.Flags().DurationVar(&f.retention, "retention", defaults.Retention, "Age after which spilled files are removed. Can also use "+attachment.EnvRetention+" env var.")
	cmd.Flags().BoolVar(&f.includeRaw, "include-raw", defaults.IncludeRaw, "Include the Base64 payload in parsed responses. Can also use "+attachment.EnvIncludeRaw+" env var.")
}

// config returns attachment.DefaultConfig with every explicitly set flag
// applied on top.
func (f *pipelineFlags) config(cmd *cobra.Command) (attachment.Config, error) {
	cfg := attachment.DefaultConfig()
	flags := cmd.Flags()

	if flags.Changed("work-dir") {
		cfg.WorkDir = f.workDir
	}
	if flags.Changed("max-response-bytes") {
		cfg.MaxSize = f.maxResponseBytes
	}
	if flags.Changed("max-sheets") {
		cfg.MaxSheets = f.maxSheets
	}
	if flags.Changed("max-rows") {
		cfg.MaxRowsPerSheet = f.maxRowsPerSheet
	}
	if flags.Changed("max-text-length") {
		cfg.MaxTextLength = f.maxTextLength
	}
	if flags.Changed("include-raw") {
		cfg.IncludeRaw = f.includeRaw
	}
	if flags.Changed("extract-timeout") {
		cfg.ExtractTimeout = f.extractTimeout
	}
	if flags.Changed("retention") {
		cfg.Retention = f.retention
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid attachment configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	// stdout carries the MCP stdio transport
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
