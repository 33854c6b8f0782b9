// Package gmail_tools provides MCP tools that read Gmail attachments.
//
// Tools:
//   - gmail_list_attachments: list the attachment parts of a message
//   - gmail_get_attachment: fetch one attachment and run it through the
//     attachment pipeline (parse, then inline or spill to a local file)
//   - gmail_get_attachments: the same for several attachments of one
//     message, resolved concurrently with the response limit split between them
//
// Example usage:
//
//	gmail_list_attachments(messageId: "msg123")
//	gmail_get_attachment(messageId: "msg123", attachmentId: "att456")
//	gmail_get_attachment(messageId: "msg123", attachmentId: "att456", decode: false)
//	gmail_get_attachments(messageId: "msg123", attachmentIds: ["att456", "att789"])
//
// Failures inside the pipeline are part of the returned JSON. Gmail errors
// (not found, permission, quota) are returned as tool errors.
package gmail_tools
