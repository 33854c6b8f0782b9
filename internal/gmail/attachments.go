package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxcontent/internal/instrumentation"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// AttachmentInfo represents an attachment's metadata
type AttachmentInfo struct {
	MessageID    string `json:"messageId"`
	PartID       string `json:"partId"`
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

// RawAttachment is an attachment body as delivered by the API. Data stays
// base64url encoded.
type RawAttachment struct {
	MessageID    string
	AttachmentID string
	Data         string
	MimeType     string
	Filename     string
	Size         int64
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).WithResource("message", messageID).Build()...)
	defer span.End()

	if err := c.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
		return nil, err
	}
	msg, err := c.svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// ListAttachments returns the attachment parts of a message.
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]*AttachmentInfo, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return attachmentParts(messageID, msg.Payload), nil
}

// GetAttachmentRaw fetches an attachment body together with the MIME type
// and filename its part declares. Attachment IDs change between fetches of
// the same message, so attachmentID may also be a part ID.
func (c *Client) GetAttachmentRaw(ctx context.Context, messageID, attachmentID string) (*RawAttachment, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	parts, err := c.ListAttachments(ctx, messageID)
	if err != nil {
		return nil, err
	}

	raw := &RawAttachment{MessageID: messageID, AttachmentID: attachmentID}
	if info := findAttachment(parts, attachmentID); info != nil {
		raw.AttachmentID = info.AttachmentID
		raw.MimeType = info.MimeType
		raw.Filename = info.Filename
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).WithResource("attachment", raw.AttachmentID).Build()...)
	defer span.End()

	if err := c.limiter.WaitN(ctx, quotaUnitsAttachmentsGet); err != nil {
		return nil, err
	}
	body, err := c.svc.Users.Messages.Attachments.Get("me", messageID, raw.AttachmentID).Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if body.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
	}

	raw.Data = body.Data
	raw.Size = body.Size
	return raw, nil
}

// IsNotFound reports whether err is a 404 from the Gmail API.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func attachmentParts(messageID string, payload *gmail.MessagePart) []*AttachmentInfo {
	var attachments []*AttachmentInfo
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			attachments = append(attachments, &AttachmentInfo{
				MessageID:    messageID,
				PartID:       part.PartId,
				AttachmentID: part.Body.AttachmentId,
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
			})
		}
	})
	return attachments
}

func findAttachment(parts []*AttachmentInfo, id string) *AttachmentInfo {
	for _, p := range parts {
		if p.AttachmentID == id {
			return p
		}
	}
	for _, p := range parts {
		if p.PartID == id {
			return p
		}
	}
	return nil
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
