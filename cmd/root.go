package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxcontent application
var rootCmd = &cobra.Command{
	Use:   "inboxcontent",
	Short: "Turns email attachments into content an AI assistant can read",
	Long: `inboxcontent decodes email attachments, classifies them, parses text,
spreadsheets and documents into bounded structured content, and writes
anything too large for an MCP response to a local work directory.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (serve)
  - A local tool for running single files through the pipeline (extract)
  - A maintenance command for the work directory (sweep)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxcontent version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
