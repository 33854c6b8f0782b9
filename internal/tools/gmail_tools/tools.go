package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxcontent/internal/gmail"
	"github.com/teemow/inboxcontent/internal/google"
	"github.com/teemow/inboxcontent/internal/server"
	"github.com/teemow/inboxcontent/internal/tools/common"
)

// RegisterGmailTools registers all Gmail-related tools with the MCP server.
// Every Gmail tool is read-only.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterAttachmentTools(s, sc); err != nil {
		return fmt.Errorf("failed to register attachment tools: %w", err)
	}
	return nil
}

// attachmentSource is the part of *gmail.Client the resolving tools use.
type attachmentSource interface {
	GetAttachmentRaw(ctx context.Context, messageID, attachmentID string) (*gmail.RawAttachment, error)
}

// gmailClient returns the cached client for the account named in args. The
// second value is a tool error to return when no client can be built.
func gmailClient(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) (*gmail.Client, *mcp.CallToolResult) {
	account := common.GetAccountFromArgs(ctx, args)
	if client := sc.GmailClientForAccount(account); client != nil {
		return client, nil
	}

	if !sc.HasTokenForAccount(account) {
		return nil, mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account))
	}
	return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client for account %s; re-authorize with google_get_auth_url", account))
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
