// Package attachment resolves the content of a single attachment.
//
// A Resolver drives the pipeline for one request: the Base64 payload is
// decoded, classified into a content category, parsed by the matching
// parser and wrapped in a content.Envelope. The serialized envelope is then
// measured against the transport limit. Envelopes that do not fit are
// written to the work directory by the overflow manager and replaced by a
// SpillResponse that points at the file.
//
// Every failure inside the pipeline (malformed Base64, corrupt documents,
// an unwritable work directory) is reported as a structured Failure on the
// returned value. Resolve never returns an error and never panics past its
// boundary.
//
// Configuration is read once, by DefaultConfig, and threaded into the
// Resolver at construction:
//
//	cfg := attachment.DefaultConfig()
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//	resolver := attachment.NewResolver(cfg, nil, nil,
//		attachment.WithMetrics(provider.Metrics()))
//	result := resolver.Resolve(ctx, attachment.Request{
//		Base64Data: raw.Data,
//		MimeType:   raw.MimeType,
//		Filename:   raw.Filename,
//		Decode:     true,
//	})
package attachment
