// Package gmail reads message attachments through the Gmail API.
//
// The client is deliberately narrow: it lists the attachment parts of a
// message and fetches one attachment body, leaving the payload base64url
// encoded for the attachment pipeline to decode. Calls are paced by a
// token bucket sized to the per-user Gmail quota.
//
// Authentication uses the per-account token cache of the google package
// (~/.cache/inboxcontent/google-<account>.token).
//
// Example usage:
//
//	client, err := gmail.NewClientForAccount(ctx, "default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	parts, err := client.ListAttachments(ctx, messageID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	raw, err := client.GetAttachmentRaw(ctx, messageID, parts[0].AttachmentID)
package gmail
