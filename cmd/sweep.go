package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxcontent/internal/attachment"
)

func newSweepCmd() *cobra.Command {
	var (
		asJSON   bool
		debug    bool
		pipeline pipelineFlags
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove spilled attachments older than the retention period",
		Long: `Remove files the attachment pipeline wrote to the work directory once
they are older than --retention. Files without the pipeline's prefix are
never touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.config(cmd)
			if err != nil {
				return err
			}

			resolver := attachment.NewResolver(cfg, nil, nil, attachment.WithLogger(newLogger(debug)))
			report, err := resolver.Sweep(cmd.Context(), cfg.Retention)
			if err != nil {
				return fmt.Errorf("sweep of %s failed: %w", resolver.WorkDir(), err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "Removed %d of %d spilled files (%s) older than %s from %s\n",
				report.Removed, report.Scanned, humanize.IBytes(uint64(report.RemovedBytes)), cfg.Retention, report.Dir)
			for _, f := range report.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Path, f.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	pipeline.register(cmd)

	return cmd
}
