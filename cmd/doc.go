// Package cmd implements the command-line interface for inboxcontent.
//
// This package provides the following commands:
//   - serve: Start the MCP server with the Gmail attachment tools
//   - extract: Run a local file through the attachment pipeline
//   - sweep: Remove spilled files older than the retention period
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Pipeline settings come from ATTACHMENT_* environment variables; flags
// given on the command line take precedence.
package cmd
