package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxcontent/internal/server"
	"github.com/teemow/inboxcontent/internal/tools/attachment_tools"
	"github.com/teemow/inboxcontent/internal/tools/gmail_tools"
	"github.com/teemow/inboxcontent/internal/tools/google_tools"
)

// registerAllTools registers every MCP tool group. serve and generate-docs
// share it so the generated reference matches what is served.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{"Gmail", func() error { return gmail_tools.RegisterGmailTools(mcpSrv, sc) }},
		{"Attachment", func() error { return attachment_tools.RegisterAttachmentTools(mcpSrv, sc) }},
		{"Google OAuth", func() error { return google_tools.RegisterGoogleTools(mcpSrv, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}
