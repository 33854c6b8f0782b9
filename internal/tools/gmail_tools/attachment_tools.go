package gmail_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxcontent/internal/attachment"
	"github.com/teemow/inboxcontent/internal/gmail"
	"github.com/teemow/inboxcontent/internal/instrumentation"
	"github.com/teemow/inboxcontent/internal/server"
	"github.com/teemow/inboxcontent/internal/tools/batch"
	"github.com/teemow/inboxcontent/internal/tools/common"
)

const (
	// maxBatchAttachments caps gmail_get_attachments so that each item still
	// gets a usable share of the response limit.
	maxBatchAttachments = 20

	// batchItemOverhead approximates the id/status wrapper around each item.
	batchItemOverhead = 256
)

// RegisterAttachmentTools registers attachment-related tools with the MCP server
func RegisterAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listAttachmentsTool := mcp.NewTool("gmail_list_attachments",
		mcp.WithDescription("List all attachments in a Gmail message"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
	)

	s.AddTool(listAttachmentsTool, common.InstrumentedToolHandlerWithService(
		"gmail_list_attachments", instrumentation.ServiceGmail, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAttachments(ctx, request, sc)
		}))

	getAttachmentTool := mcp.NewTool("gmail_get_attachment",
		mcp.WithDescription("Get the content of an attachment. Text, spreadsheets and documents are parsed; "+
			"responses larger than the transport limit are written to a local file and a summary is returned instead."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("The ID of the attachment (the part ID is accepted too)"),
		),
		mcp.WithBoolean("decode",
			mcp.Description("Parse the content (default: true). When false the payload is returned as base64."),
		),
		mcp.WithBoolean("includeRaw",
			mcp.Description("Also return the base64 payload next to parsed content (default: false)"),
		),
	)

	s.AddTool(getAttachmentTool, common.InstrumentedToolHandlerWithService(
		"gmail_get_attachment", instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAttachment(ctx, request, sc)
		}))

	getAttachmentsTool := mcp.NewTool("gmail_get_attachments",
		mcp.WithDescription(fmt.Sprintf("Get and parse several attachments of one message (at most %d). "+
			"The response limit is shared between the attachments.", maxBatchAttachments)),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
		mcp.WithString("attachmentIds",
			mcp.Required(),
			mcp.Description("Attachment ID (string) or array of attachment IDs"),
		),
		mcp.WithBoolean("decode",
			mcp.Description("Parse the content (default: true)"),
		),
	)

	s.AddTool(getAttachmentsTool, common.InstrumentedToolHandlerWithService(
		"gmail_get_attachments", instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAttachments(ctx, request, sc)
		}))

	return nil
}

type attachmentOutput struct {
	AttachmentID string `json:"attachmentId"`
	PartID       string `json:"partId"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	SizeHuman    string `json:"sizeHuman"`
}

func handleListAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID := stringArg(args, "messageId")
	if messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gmailClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	attachments, err := client.ListAttachments(ctx, messageID)
	if gmail.IsNotFound(err) {
		return mcp.NewToolResultError(fmt.Sprintf("Message %s not found", messageID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list attachments: %v", err)), nil
	}

	if len(attachments) == 0 {
		return mcp.NewToolResultText("No attachments found in message"), nil
	}

	outputs := make([]attachmentOutput, len(attachments))
	for i, att := range attachments {
		outputs[i] = attachmentOutput{
			AttachmentID: att.AttachmentID,
			PartID:       att.PartID,
			Filename:     att.Filename,
			MimeType:     att.MimeType,
			Size:         att.Size,
			SizeHuman:    humanize.IBytes(uint64(att.Size)),
		}
	}

	jsonBytes, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d attachment(s):\n%s", len(attachments), string(jsonBytes))
	return mcp.NewToolResultText(result), nil
}

func handleGetAttachment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID := stringArg(args, "messageId")
	if messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}
	attachmentID := stringArg(args, "attachmentId")
	if attachmentID == "" {
		return mcp.NewToolResultError("attachmentId is required"), nil
	}

	client, errResult := gmailClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	resolver := sc.Resolver()
	res, err := fetchAndResolve(ctx, client, resolver, messageID, attachmentID, attachment.Request{
		Decode:     boolArg(args, "decode", true),
		IncludeRaw: boolArg(args, "includeRaw", resolver.Config().IncludeRaw),
	})
	if gmail.IsNotFound(err) {
		return mcp.NewToolResultError(fmt.Sprintf("Attachment %s not found in message %s", attachmentID, messageID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get attachment: %v", err)), nil
	}
	common.AnnotateAttachment(ctx, res.Audit())

	out, err := res.JSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleGetAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID := stringArg(args, "messageId")
	if messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}
	ids, err := batch.ParseStringOrArray(args["attachmentIds"], "attachmentIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) > maxBatchAttachments {
		return mcp.NewToolResultError(fmt.Sprintf("at most %d attachmentIds are allowed, got %d", maxBatchAttachments, len(ids))), nil
	}

	client, errResult := gmailClient(ctx, sc, args)
	if errResult != nil {
		return errResult, nil
	}

	maxSize := sc.Resolver().Config().MaxSize
	resolver := sc.Resolver().WithMaxSize(batchItemBudget(maxSize, len(ids)))
	decode := boolArg(args, "decode", true)

	results := batch.ProcessBatch(ctx, ids, batch.DefaultConcurrency, func(ctx context.Context, id string) (json.RawMessage, error) {
		res, err := fetchAndResolve(ctx, client, resolver, messageID, id, attachment.Request{Decode: decode})
		if err != nil {
			return nil, err
		}
		common.AnnotateAttachment(ctx, res.Audit())
		return res.JSON()
	})

	out := batch.FitResults(results, maxSize, func(r batch.Result) batch.Result {
		return offloadResult(ctx, resolver, r)
	})
	return mcp.NewToolResultText(out), nil
}

// offloadResult replaces r with a reference to a file holding its response.
func offloadResult(ctx context.Context, resolver *attachment.Resolver, r batch.Result) batch.Result {
	ref, err := resolver.Offload(ctx, r.Result)
	if err != nil {
		return batch.NewErrorResult(r.ID, fmt.Errorf("response does not fit and could not be written: %w", err))
	}
	out, err := ref.JSON()
	if err != nil {
		return batch.NewErrorResult(r.ID, err)
	}
	return batch.NewSuccessResult(r.ID, out)
}

// batchItemBudget splits maxSize between n results.
func batchItemBudget(maxSize, n int) int {
	if n <= 1 {
		return maxSize
	}
	budget := maxSize/n - batchItemOverhead
	if budget < batchItemOverhead {
		budget = batchItemOverhead
	}
	return budget
}

func fetchAndResolve(ctx context.Context, client attachmentSource, resolver *attachment.Resolver, messageID, attachmentID string, req attachment.Request) (*attachment.Result, error) {
	raw, err := client.GetAttachmentRaw(ctx, messageID, attachmentID)
	if err != nil {
		return nil, err
	}
	req.Base64Data = raw.Data
	req.MimeType = raw.MimeType
	req.Filename = raw.Filename
	return resolver.Resolve(ctx, req), nil
}
