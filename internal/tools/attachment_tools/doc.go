// Package attachment_tools provides MCP tools that work on the attachment
// pipeline directly, without an upstream mail source.
//
// attachment_resolve runs caller-supplied Base64 content through
// decode, classify, parse and spill. attachment_cleanup sweeps the work
// directory of spilled files past their retention.
package attachment_tools
