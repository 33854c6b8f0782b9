package instrumentation

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AttachmentAudit describes one attachment handled during a tool call.
type AttachmentAudit struct {
	Filename  string
	Category  string
	Outcome   string
	Size      int
	SpillPath string
}

func (a AttachmentAudit) attrs(includeFilenames bool) []any {
	attrs := []any{
		slog.String("category", a.Category),
		slog.String("outcome", a.Outcome),
		slog.Int("size", a.Size),
	}
	if includeFilenames {
		if a.Filename != "" {
			attrs = append(attrs, slog.String("filename", a.Filename))
		}
		if a.SpillPath != "" {
			attrs = append(attrs, slog.String("spill_path", a.SpillPath))
		}
	} else if a.Filename != "" {
		attrs = append(attrs, slog.String("extension", FileExtension(a.Filename)))
	}
	return attrs
}

// ToolInvocation is the audit record of one tool call. Attachments may be
// added concurrently; every other field belongs to the handler goroutine.
type ToolInvocation struct {
	Tool      string
	Account   string
	Service   string
	Operation string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string

	mu          sync.Mutex
	attachments []AttachmentAudit
}

// NewToolInvocation starts the clock for tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithAccount sets the Google account name.
func (ti *ToolInvocation) WithAccount(account string) *ToolInvocation {
	ti.Account = account
	return ti
}

// WithService sets the upstream service and the operation performed on it.
func (ti *ToolInvocation) WithService(service, operation string) *ToolInvocation {
	ti.Service = service
	ti.Operation = operation
	return ti
}

// WithSpanContext copies the trace and span IDs of the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// AddAttachment records an attachment resolved by the call.
func (ti *ToolInvocation) AddAttachment(a AttachmentAudit) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.attachments = append(ti.attachments, a)
}

// Attachments returns a copy of the recorded attachments.
func (ti *ToolInvocation) Attachments() []AttachmentAudit {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return slices.Clone(ti.attachments)
}

// Complete stops the clock. A nil err with success false is a tool error
// result rather than a Go error.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the audit attributes. Attachment filenames are reduced
// to their extension unless includeFilenames is set. A call with several
// attachments logs outcome counts instead of one group per attachment.
func (ti *ToolInvocation) LogAttrs(includeFilenames bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Account != "" && ti.Account != "default" {
		attrs = append(attrs, slog.String("account", ti.Account))
	}
	if ti.Service != "" {
		attrs = append(attrs, slog.String("service", ti.Service), slog.String("operation", ti.Operation))
	}

	switch atts := ti.Attachments(); len(atts) {
	case 0:
	case 1:
		attrs = append(attrs, slog.Group("attachment", atts[0].attrs(includeFilenames)...))
	default:
		outcomes := map[string]int{}
		total := 0
		for _, a := range atts {
			outcomes[a.Outcome]++
			total += a.Size
		}
		counts := make([]any, 0, len(outcomes))
		for _, outcome := range slices.Sorted(maps.Keys(outcomes)) {
			counts = append(counts, slog.Int(outcome, outcomes[outcome]))
		}
		attrs = append(attrs,
			slog.Int("attachments", len(atts)),
			slog.Int("attachments_size", total),
			slog.Group("outcomes", counts...))
	}

	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one entry per tool call.
type AuditLogger struct {
	logger *slog.Logger
	config AuditConfig
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default.
func NewAuditLogger(logger *slog.Logger, config AuditConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, config: config}
}

// LogToolInvocation logs ti at info level when it succeeded and at warn
// level otherwise.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.config.Enabled {
		return
	}

	level, msg := slog.LevelInfo, "tool_executed"
	if !ti.Success {
		level, msg = slog.LevelWarn, "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, ti.LogAttrs(al.config.IncludeFilenames)...)
}
