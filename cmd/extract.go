package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxcontent/internal/attachment"
)

type extractOptions struct {
	mimeType string
	noDecode bool
	pretty   bool
	debug    bool
	pipeline pipelineFlags
}

func newExtractCmd() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Run a local file through the attachment pipeline",
		Long: `Decode, classify and parse a local file exactly as the MCP tools do with
an attachment, and print the JSON response.

The MIME type is taken from --mime-type; without it the file extension
decides. A result larger than --max-response-bytes is written to the work
directory and the printed response points at that file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.pipeline.config(cmd)
			if err != nil {
				return err
			}
			return runExtract(cmd, args[0], opts, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.mimeType, "mime-type", "", "Declared MIME type (default: derived from the file extension)")
	cmd.Flags().BoolVar(&opts.noDecode, "no-decode", false, "Skip parsing and return the payload as base64")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	opts.pipeline.register(cmd)

	return cmd
}

func runExtract(cmd *cobra.Command, path string, opts extractOptions, cfg attachment.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	resolver := attachment.NewResolver(cfg, nil, nil, attachment.WithLogger(newLogger(opts.debug)))
	res := resolver.Resolve(cmd.Context(), attachment.Request{
		Base64Data: base64.StdEncoding.EncodeToString(data),
		MimeType:   opts.mimeType,
		Filename:   filepath.Base(path),
		Decode:     !opts.noDecode,
		IncludeRaw: cfg.IncludeRaw,
	})

	out, err := res.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if opts.pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err != nil {
			return fmt.Errorf("failed to indent result: %w", err)
		}
		out = buf.Bytes()
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if f := res.Failure(); f != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s failure: %s\n", f.Kind, f.Message)
	}
	return nil
}
