package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanAttributeBuilder(t *testing.T) {
	builder := NewSpanAttributeBuilder().
		WithTool("gmail_get_attachment").
		WithService("gmail").
		WithOperation("get").
		WithAccount("user@example.com").
		WithResource("attachment", "ANGjdJ8").
		WithReadOnly(true).
		WithAttachment("spreadsheet", 2048)

	attrs := builder.Build()

	if len(attrs) != 9 {
		t.Errorf("expected 9 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrTool] != "gmail_get_attachment" {
		t.Errorf("expected tool 'gmail_get_attachment', got %v", attrMap[SpanAttrTool])
	}
	if attrMap[SpanAttrService] != "gmail" {
		t.Errorf("expected service 'gmail', got %v", attrMap[SpanAttrService])
	}
	if attrMap[SpanAttrOperation] != "get" {
		t.Errorf("expected operation 'get', got %v", attrMap[SpanAttrOperation])
	}
	if attrMap[SpanAttrAccount] != "user@example.com" {
		t.Errorf("expected account 'user@example.com', got %v", attrMap[SpanAttrAccount])
	}
	if attrMap[SpanAttrResourceType] != "attachment" {
		t.Errorf("expected resource type 'attachment', got %v", attrMap[SpanAttrResourceType])
	}
	if attrMap[SpanAttrResourceID] != "ANGjdJ8" {
		t.Errorf("expected resource id 'ANGjdJ8', got %v", attrMap[SpanAttrResourceID])
	}
	if attrMap[SpanAttrReadOnly] != true {
		t.Errorf("expected read_only true, got %v", attrMap[SpanAttrReadOnly])
	}
	if attrMap[SpanAttrCategory] != "spreadsheet" {
		t.Errorf("expected category 'spreadsheet', got %v", attrMap[SpanAttrCategory])
	}
	if attrMap[SpanAttrSize] != int64(2048) {
		t.Errorf("expected size 2048, got %v", attrMap[SpanAttrSize])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	// Empty account should not be added
	builder := NewSpanAttributeBuilder().
		WithTool("test_tool").
		WithAccount("").
		WithResource("", "")

	attrs := builder.Build()

	// Only tool should be present
	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func startTracingProvider(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return ctx
}

func TestStartSpans(t *testing.T) {
	ctx := startTracingProvider(t)

	starters := map[string]func() (context.Context, trace.Span){
		"span":       func() (context.Context, trace.Span) { return StartSpan(ctx, "test-span") },
		"tool":       func() (context.Context, trace.Span) { return StartToolSpan(ctx, "gmail_get_attachment") },
		"google":     func() (context.Context, trace.Span) { return StartGoogleAPISpan(ctx, "gmail", "get") },
		"attachment": func() (context.Context, trace.Span) { return StartAttachmentSpan(ctx, "parse") },
	}

	for name, start := range starters {
		t.Run(name, func(t *testing.T) {
			spanCtx, span := start()
			defer span.End()

			if spanCtx == nil {
				t.Error("expected context to be non-nil")
			}
			if span == nil {
				t.Error("expected span to be non-nil")
			}
		})
	}
}

func TestStartAttachmentSpan_Recorded(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Swap the global provider for the duration of the test.
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartAttachmentSpan(context.Background(), "persist",
		NewSpanAttributeBuilder().WithAttachment("binary", 5_000_000).Build()...)
	SetSpanError(span, errors.New("disk full"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	got := ended[0]
	if got.Name() != "attachment.persist" {
		t.Errorf("span name = %q, want attachment.persist", got.Name())
	}
	if got.SpanKind() != trace.SpanKindInternal {
		t.Errorf("span kind = %v, want internal", got.SpanKind())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", got.Status().Code)
	}
	var category string
	for _, attr := range got.Attributes() {
		if string(attr.Key) == SpanAttrCategory {
			category = attr.Value.AsString()
		}
	}
	if category != "binary" {
		t.Errorf("category attribute = %q, want binary", category)
	}
}

func TestSpanStatusHelpers(t *testing.T) {
	ctx := startTracingProvider(t)

	_, span := StartSpan(ctx, "test-span")

	// Should not panic
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil) // nil error should be safe
	SetSpanSuccess(span)
	AddSpanEvent(span, "test-event")
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	ctx := context.Background()
	traceID := GetTraceID(ctx)
	if traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	ctx := context.Background()
	spanID := GetSpanID(ctx)
	if spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}

func TestSpanContextString_NoSpan(t *testing.T) {
	ctx := context.Background()
	ctxStr := SpanContextString(ctx)
	if ctxStr != "" {
		t.Errorf("expected empty context string for context without span, got %q", ctxStr)
	}
}
