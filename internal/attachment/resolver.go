package attachment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/teemow/inboxcontent/internal/content"
	"github.com/teemow/inboxcontent/internal/document"
	"github.com/teemow/inboxcontent/internal/instrumentation"
	"github.com/teemow/inboxcontent/internal/logging"
	"github.com/teemow/inboxcontent/internal/overflow"
	"github.com/teemow/inboxcontent/internal/spreadsheet"
	"go.opentelemetry.io/otel/attribute"
)

// DocumentParser extracts bounded text from office documents.
// *document.Parser implements it.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte, filename, mimeType string, maxTextLength int) *content.DocumentResult
}

// Request is one attachment payload to resolve.
type Request struct {
	// Base64Data is the payload as delivered by the upstream source.
	Base64Data string
	MimeType   string
	Filename   string

	// Decode false skips classification and parsing; the payload is
	// returned as a binary pass-through envelope.
	Decode bool

	// IncludeRaw adds the Base64 payload to parsed envelopes.
	IncludeRaw bool
}

// SpillResponse replaces an envelope whose serialized form exceeded the
// transport limit. The full content is in the file named by Record.
type SpillResponse struct {
	Category            content.Category     `json:"category"`
	Filename            string               `json:"filename,omitempty"`
	MimeType            string               `json:"mimeType,omitempty"`
	Size                int                  `json:"size"`
	Record              *content.SpillRecord `json:"spill"`
	Summary             content.ParsedResult `json:"summary,omitempty"`
	MCPLimitExceeded    bool                 `json:"mcpLimitExceeded"`
	SecondaryTruncation bool                 `json:"secondaryTruncation,omitempty"`
	Error               *content.Failure     `json:"error,omitempty"`
	Note                string               `json:"note"`
}

// UnmarshalJSON decodes the summary as the variant named by the category.
func (s *SpillResponse) UnmarshalJSON(data []byte) error {
	type plain SpillResponse
	aux := struct {
		*plain
		Summary json.RawMessage `json:"summary,omitempty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	summary, err := content.DecodeResult(s.Category, aux.Summary)
	if err != nil {
		return err
	}
	s.Summary = summary
	return nil
}

// Result is exactly one of Inline or Spilled.
type Result struct {
	Inline  *content.Envelope
	Spilled *SpillResponse

	encoded []byte
}

// Category returns the content category of the resolved attachment.
func (r *Result) Category() content.Category {
	if r.Spilled != nil {
		return r.Spilled.Category
	}
	if r.Inline != nil {
		return r.Inline.Category
	}
	return content.CategoryBinary
}

// Failure returns the failure carried by the result, or nil.
func (r *Result) Failure() *content.Failure {
	if r.Spilled != nil {
		return r.Spilled.Error
	}
	if r.Inline != nil {
		return r.Inline.Error
	}
	return nil
}

// JSON returns the serialized response. The bytes measured against the
// transport limit are returned as is.
func (r *Result) JSON() ([]byte, error) {
	if r.encoded != nil {
		return r.encoded, nil
	}
	if r.Spilled != nil {
		return json.Marshal(r.Spilled)
	}
	return json.Marshal(r.Inline)
}

// Outcome classifies the result for metrics and audit logs: failed, degraded,
// spilled or inline.
func (r *Result) Outcome() string {
	f := r.Failure()
	switch {
	case f != nil && f.Kind != content.FailureParse:
		return instrumentation.OutcomeFailed
	case f != nil:
		return instrumentation.OutcomeDegraded
	case r.Spilled != nil:
		return instrumentation.OutcomeSpilled
	default:
		return instrumentation.OutcomeInline
	}
}

// Audit returns the audit record of the result.
func (r *Result) Audit() instrumentation.AttachmentAudit {
	a := instrumentation.AttachmentAudit{
		Category: string(r.Category()),
		Outcome:  r.Outcome(),
	}
	switch {
	case r.Spilled != nil:
		a.Filename, a.Size = r.Spilled.Filename, r.Spilled.Size
		if r.Spilled.Record != nil {
			a.SpillPath = r.Spilled.Record.Path
		}
	case r.Inline != nil:
		a.Filename, a.Size = r.Inline.Filename, r.Inline.Size
	}
	return a
}

// Resolver runs the decode, classify, parse and spill pipeline.
type Resolver struct {
	config    Config
	overflow  *overflow.Manager
	documents DocumentParser
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver. A nil manager writes to the work
// directory resolved from config.WorkDir; a nil documents parser uses
// document.NewParser with config.ExtractTimeout.
func NewResolver(config Config, manager *overflow.Manager, documents DocumentParser, opts ...Option) *Resolver {
	r := &Resolver{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if manager == nil {
		manager = overflow.NewManager(overflow.ResolveWorkDir(config.WorkDir), config.MaxSize,
			overflow.WithLogger(r.logger))
	}
	if documents == nil {
		documents = document.NewParser(
			document.WithExtractTimeout(config.ExtractTimeout),
			document.WithLogger(r.logger))
	}
	r.overflow = manager
	r.documents = documents
	return r
}

// WithMaxSize returns a Resolver sharing r's work directory, parsers and
// instrumentation but measuring responses against maxSize. Tools that pack
// several results into one response use it to split the transport limit.
func (r *Resolver) WithMaxSize(maxSize int) *Resolver {
	if maxSize <= 0 || maxSize == r.overflow.MaxSize {
		return r
	}
	m := *r.overflow
	m.MaxSize = maxSize
	c := *r
	c.overflow = &m
	c.config.MaxSize = maxSize
	return &c
}

// Config returns the configuration the Resolver was built with.
func (r *Resolver) Config() Config {
	return r.config
}

// WorkDir returns the directory spilled payloads are written to.
func (r *Resolver) WorkDir() string {
	return r.overflow.Dir
}

// Resolve turns one attachment payload into a response that fits the
// transport limit. Failures are embedded in the result.
func (r *Resolver) Resolve(ctx context.Context, req Request) (result *Result) {
	start := time.Now()
	ctx, span := instrumentation.StartAttachmentSpan(ctx, "resolve")
	defer span.End()

	logger := r.logger.With(logging.Operation("attachment.resolve"), logging.Filename(req.Filename))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("attachment resolution panicked", slog.Any("panic", rec))
			result = r.inline(&content.Envelope{
				Category: content.Classify(req.MimeType, req.Filename, nil),
				Filename: req.Filename,
				MimeType: req.MimeType,
				Error: &content.Failure{
					Kind:    content.FailureParse,
					Message: fmt.Sprintf("internal error while resolving attachment: %v", rec),
				},
			})
		}

		outcome := result.Outcome()
		span.SetAttributes(
			attribute.String(instrumentation.SpanAttrCategory, string(result.Category())),
			attribute.String(instrumentation.SpanAttrOutcome, outcome),
		)
		if f := result.Failure(); f != nil {
			instrumentation.SetSpanError(span, f)
		}
		r.metrics.RecordAttachmentResolution(ctx, string(result.Category()), outcome, time.Since(start))
		logger.Debug("attachment resolved",
			logging.Category(string(result.Category())),
			logging.Outcome(outcome))
	}()

	data, err := content.DecodeBase64(req.Base64Data)
	if err != nil {
		logger.Warn("attachment payload could not be decoded", logging.Err(err))
		return r.deliver(ctx, &content.Envelope{
			Category: content.Classify(req.MimeType, req.Filename, nil),
			Filename: req.Filename,
			MimeType: req.MimeType,
			Error:    content.FailureFromError(err),
		}, content.RawContent{})
	}

	raw := content.RawContent{Data: data, MimeType: req.MimeType, Filename: req.Filename}

	if !req.Decode {
		return r.deliver(ctx, &content.Envelope{
			Category:  content.CategoryBinary,
			Filename:  req.Filename,
			MimeType:  req.MimeType,
			Size:      len(data),
			RawBase64: base64.StdEncoding.EncodeToString(data),
		}, raw)
	}

	env := r.parse(ctx, raw, logger)
	if env.Category == content.CategoryBinary || req.IncludeRaw || r.config.IncludeRaw {
		env.RawBase64 = base64.StdEncoding.EncodeToString(data)
	}
	return r.deliver(ctx, env, raw)
}

// parse classifies raw and runs the parser for its category.
func (r *Resolver) parse(ctx context.Context, raw content.RawContent, logger *slog.Logger) *content.Envelope {
	category := content.Classify(raw.MimeType, raw.Filename, raw.Sample())
	env := &content.Envelope{
		Category: category,
		Filename: raw.Filename,
		MimeType: raw.MimeType,
		Size:     len(raw.Data),
	}

	ctx, span := instrumentation.StartAttachmentSpan(ctx, "parse",
		instrumentation.NewSpanAttributeBuilder().
			WithAttachment(string(category), int64(len(raw.Data))).
			Build()...)
	defer span.End()

	switch category {
	case content.CategoryText:
		text, encoding := content.DecodeText(raw.Data)
		env.Result = &content.TextResult{
			Content:  text,
			Size:     len(raw.Data),
			Encoding: encoding,
		}

	case content.CategorySpreadsheet:
		sheets := spreadsheet.Parse(raw.Data, raw.Filename, r.config.spreadsheetOptions())
		env.Result = sheets
		if sheets.Error != "" {
			env.Error = &content.Failure{Kind: content.FailureParse, Message: sheets.Error}
		}

	case content.CategoryOfficeDocument:
		doc := r.documents.Parse(ctx, raw.Data, raw.Filename, raw.MimeType, r.config.MaxTextLength)
		env.Result = doc
		if doc.Error != "" {
			env.Error = &content.Failure{Kind: content.FailureParse, Message: doc.Error}
		}

	case content.CategoryBinary:
		env.Result = binarySummary(raw)

	default:
		env.Category = content.CategoryBinary
		env.Result = binarySummary(raw)
	}

	if env.Error != nil {
		instrumentation.SetSpanError(span, env.Error)
		logger.Warn("attachment returned with a parse error",
			logging.Category(string(category)),
			slog.String("reason", env.Error.Message))
	}
	return env
}

func binarySummary(raw content.RawContent) *content.BinaryResult {
	return &content.BinaryResult{
		Size:      len(raw.Data),
		SizeHuman: humanize.IBytes(uint64(len(raw.Data))),
		MimeType:  raw.MimeType,
		Note:      "binary content is not interpreted; the payload is in rawBase64",
	}
}

// deliver serializes env and hands it to the overflow manager, which keeps
// it inline or writes the spill payload for its category.
func (r *Resolver) deliver(ctx context.Context, env *content.Envelope, raw content.RawContent) *Result {
	encoded, err := json.Marshal(env)
	if err != nil {
		env.Result = nil
		env.RawBase64 = ""
		env.Error = &content.Failure{Kind: content.FailureParse, Message: fmt.Sprintf("failed to encode response: %v", err)}
		return r.inline(env)
	}

	ctx, span := instrumentation.StartAttachmentSpan(ctx, "persist",
		instrumentation.NewSpanAttributeBuilder().
			WithAttachment(string(env.Category), int64(len(encoded))).
			Build()...)
	defer span.End()

	decision, err := r.overflow.PersistIfOversized(encoded, raw.Filename, overflow.EncodingText,
		overflow.WithSpillPayload(func() ([]byte, string) {
			return spillPayload(env, raw, encoded)
		}))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return r.persistFailed(env, raw, encoded, err)
	}
	if !decision.IsSpilled() {
		return &Result{Inline: env, encoded: decision.Inline}
	}
	return r.spill(ctx, env, raw, decision)
}

// spill returns a reference to the file written for env with a bounded
// summary of its parsed content.
func (r *Resolver) spill(ctx context.Context, env *content.Envelope, raw content.RawContent, decision *overflow.Decision) *Result {
	record := decision.Spilled
	summary, secondary := r.summarize(spilledSummary(env.Result))

	r.metrics.RecordSpill(ctx, string(env.Category), record.Size)
	r.logger.Debug("oversized attachment spilled",
		logging.Operation("attachment.spill"),
		logging.Filename(raw.Filename),
		logging.Category(string(env.Category)),
		logging.SizeBytes(record.Size),
		slog.Bool("secondary_truncation", secondary))

	resp := &SpillResponse{
		Category:            env.Category,
		Filename:            env.Filename,
		MimeType:            env.MimeType,
		Size:                env.Size,
		Record:              record,
		Summary:             summary,
		MCPLimitExceeded:    true,
		SecondaryTruncation: secondary,
		Error:               env.Error,
		Note: fmt.Sprintf("response of %s exceeds the %s limit; the full content was written to %s",
			humanize.IBytes(uint64(decision.Size)), humanize.IBytes(uint64(r.overflow.MaxSize)), record.Path),
	}
	return r.spilled(resp)
}

// persistFailed returns a truncated summary inline when the oversized
// response could not be written.
func (r *Resolver) persistFailed(env *content.Envelope, raw content.RawContent, encoded []byte, err error) *Result {
	r.logger.Warn("oversized attachment could not be written, returning a truncated summary",
		logging.Operation("attachment.spill"),
		logging.Filename(raw.Filename),
		logging.Err(err),
		logging.SizeBytes(int64(len(encoded))))

	summary, _ := r.summarize(env.Result)
	failure := content.FailureFromError(err)
	if env.Error != nil {
		failure.Message += "; " + env.Error.Message
	}
	return r.inline(&content.Envelope{
		Category:         env.Category,
		Filename:         env.Filename,
		MimeType:         env.MimeType,
		Size:             env.Size,
		Result:           summary,
		MCPLimitExceeded: true,
		Error:            failure,
	})
}

// spilledSummary points binary summaries at the spill file; the payload is
// no longer carried in the response.
func spilledSummary(result content.ParsedResult) content.ParsedResult {
	b, ok := result.(*content.BinaryResult)
	if !ok {
		return result
	}
	s := *b
	s.Note = "binary content is not interpreted; the payload is in the spill file"
	return &s
}

// Offload writes an already serialized response to the work directory and
// returns a reference without summary. Responses that are already spill
// references only lose their summary. Tools packing several responses into
// one use it when the combined output does not fit.
func (r *Resolver) Offload(ctx context.Context, encoded []byte) (*Result, error) {
	var head struct {
		Category content.Category     `json:"category"`
		Filename string               `json:"filename"`
		MimeType string               `json:"mimeType"`
		Size     int                  `json:"size"`
		Record   *content.SpillRecord `json:"spill"`
		Error    *content.Failure     `json:"error"`
	}
	if err := json.Unmarshal(encoded, &head); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	record := head.Record
	if record == nil {
		name := head.Filename
		if name == "" {
			name = "attachment"
		}
		var err error
		record, err = r.overflow.Persist(encoded, name+".json")
		if err != nil {
			return nil, err
		}
		r.metrics.RecordSpill(ctx, string(head.Category), record.Size)
	}

	return r.spilled(&SpillResponse{
		Category:            head.Category,
		Filename:            head.Filename,
		MimeType:            head.MimeType,
		Size:                head.Size,
		Record:              record,
		MCPLimitExceeded:    true,
		SecondaryTruncation: true,
		Error:               head.Error,
		Note:                fmt.Sprintf("response did not fit in the combined output; it was written to %s", record.Path),
	}), nil
}

// spillPayload picks what is written for env: the decoded text for text
// attachments, the serialized envelope for parsed categories and the
// original bytes otherwise.
func spillPayload(env *content.Envelope, raw content.RawContent, encoded []byte) ([]byte, string) {
	switch res := env.Result.(type) {
	case *content.TextResult:
		return []byte(res.Content), raw.Filename
	case *content.SpreadsheetResult, *content.DocumentResult:
		name := raw.Filename
		if name == "" {
			name = "attachment"
		}
		return encoded, name + ".json"
	default:
		return raw.Data, raw.Filename
	}
}

// inline serializes env, dropping the parsed branch if it still does not
// fit.
func (r *Resolver) inline(env *content.Envelope) *Result {
	encoded, _ := json.Marshal(env)
	if !r.overflow.Fits(len(encoded)) {
		env.Result = nil
		env.RawBase64 = ""
		env.MCPLimitExceeded = true
		env.Filename = clamp(env.Filename, maxLabelLength)
		env.MimeType = clamp(env.MimeType, maxLabelLength)
		if env.Error != nil {
			env.Error.Message = clamp(env.Error.Message, maxMessageLength)
		}
		encoded, _ = json.Marshal(env)
	}
	return &Result{Inline: env, encoded: encoded}
}

func (r *Resolver) spilled(resp *SpillResponse) *Result {
	encoded, _ := json.Marshal(resp)
	if !r.overflow.Fits(len(encoded)) {
		resp.Summary = nil
		resp.SecondaryTruncation = true
		resp.Filename = clamp(resp.Filename, maxLabelLength)
		resp.MimeType = clamp(resp.MimeType, maxLabelLength)
		resp.Record.OriginalFilename = clamp(resp.Record.OriginalFilename, maxLabelLength)
		if resp.Error != nil {
			resp.Error.Message = clamp(resp.Error.Message, maxMessageLength)
		}
		encoded, _ = json.Marshal(resp)
	}
	return &Result{Spilled: resp, encoded: encoded}
}

// Sweep removes spilled files older than maxAge. A non-positive maxAge
// selects the configured retention.
func (r *Resolver) Sweep(ctx context.Context, maxAge time.Duration) (overflow.SweepReport, error) {
	if maxAge <= 0 {
		maxAge = r.config.Retention
	}

	ctx, span := instrumentation.StartAttachmentSpan(ctx, "sweep")
	defer span.End()

	report, err := r.overflow.Sweep(ctx, maxAge)
	if err != nil {
		instrumentation.SetSpanError(span, err)
	}
	r.metrics.RecordSweep(ctx, report.Removed)
	r.logger.Debug("work directory swept",
		logging.Operation("attachment.sweep"),
		slog.Int("scanned", report.Scanned),
		slog.Int("removed", report.Removed),
		slog.Int("failures", len(report.Failures)))
	return report, err
}
