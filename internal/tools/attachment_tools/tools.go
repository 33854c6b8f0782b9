package attachment_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxcontent/internal/attachment"
	"github.com/teemow/inboxcontent/internal/overflow"
	"github.com/teemow/inboxcontent/internal/server"
	"github.com/teemow/inboxcontent/internal/tools/common"
)

// RegisterAttachmentTools registers the source-independent attachment
// tools with the MCP server.
func RegisterAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	resolveTool := mcp.NewTool("attachment_resolve",
		mcp.WithDescription("Parse Base64 content supplied by the caller. Text, spreadsheets and documents are parsed; "+
			"responses larger than the transport limit are written to a local file and a summary is returned instead."),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("The content, Base64 encoded (standard or URL-safe alphabet)"),
		),
		mcp.WithString("mimeType",
			mcp.Description("Declared MIME type, e.g. text/csv or application/pdf"),
		),
		mcp.WithString("filename",
			mcp.Description("Original filename; its extension is used when the MIME type is missing or generic"),
		),
		mcp.WithBoolean("decode",
			mcp.Description("Parse the content (default: true). When false the payload is returned as base64."),
		),
	)

	s.AddTool(resolveTool, common.InstrumentedToolHandler("attachment_resolve", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleResolve(ctx, request, sc)
		}))

	cleanupTool := mcp.NewTool("attachment_cleanup",
		mcp.WithDescription("Delete spilled attachment files from the work directory"),
		mcp.WithNumber("maxAgeHours",
			mcp.Description("Remove files older than this many hours (default: the configured retention)"),
		),
	)

	s.AddTool(cleanupTool, common.InstrumentedToolHandler("attachment_cleanup", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCleanup(ctx, request, sc)
		}))

	return nil
}

func handleResolve(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	data, _ := args["data"].(string)
	if data == "" {
		return mcp.NewToolResultError("data is required"), nil
	}
	mimeType, _ := args["mimeType"].(string)
	filename, _ := args["filename"].(string)
	decode := true
	if v, ok := args["decode"].(bool); ok {
		decode = v
	}

	resolver := sc.Resolver()
	res := resolver.Resolve(ctx, attachment.Request{
		Base64Data: data,
		MimeType:   mimeType,
		Filename:   filename,
		Decode:     decode,
		IncludeRaw: resolver.Config().IncludeRaw,
	})
	common.AnnotateAttachment(ctx, res.Audit())

	out, err := res.JSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

type cleanupOutput struct {
	overflow.SweepReport
	MaxAge            string `json:"maxAge"`
	RemovedBytesHuman string `json:"removedBytesHuman"`
}

func handleCleanup(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var maxAge time.Duration
	if v, ok := args["maxAgeHours"]; ok && v != nil {
		hours, ok := v.(float64)
		if !ok || hours <= 0 {
			return mcp.NewToolResultError("maxAgeHours must be a positive number"), nil
		}
		maxAge = time.Duration(hours * float64(time.Hour))
	}

	resolver := sc.Resolver()
	report, err := resolver.Sweep(ctx, maxAge)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to clean up %s: %v", resolver.WorkDir(), err)), nil
	}
	if maxAge <= 0 {
		maxAge = resolver.Config().Retention
	}

	jsonBytes, err := json.MarshalIndent(cleanupOutput{
		SweepReport:       report,
		MaxAge:            maxAge.String(),
		RemovedBytesHuman: humanize.IBytes(uint64(report.RemovedBytes)),
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
