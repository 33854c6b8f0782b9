package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrCategory  = "category"
	attrOutcome   = "outcome"
)

// Outcomes of an attachment resolution.
const (
	OutcomeInline   = "inline"
	OutcomeSpilled  = "spilled"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Attachment pipeline metrics
	resolutionsTotal   metric.Int64Counter
	resolutionDuration metric.Float64Histogram
	spillsTotal        metric.Int64Counter
	spilledBytes       metric.Int64Histogram
	sweepRemovedTotal  metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*metricsOptions)

type metricsOptions struct {
	spillSizeBuckets []float64
}

// WithSpillSizeBuckets sets the attachment_spilled_bytes boundaries in
// bytes. An empty slice keeps DefaultSpillSizeBuckets.
func WithSpillSizeBuckets(buckets []float64) MetricsOption {
	return func(o *metricsOptions) {
		if len(buckets) > 0 {
			o.spillSizeBuckets = buckets
		}
	}
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool, opts ...MetricsOption) (*Metrics, error) {
	o := metricsOptions{spillSizeBuckets: DefaultSpillSizeBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Google API Metrics
	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	// Attachment pipeline metrics
	m.resolutionsTotal, err = meter.Int64Counter(
		"attachment_resolutions_total",
		metric.WithDescription("Total number of attachment content resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_resolutions_total counter: %w", err)
	}

	m.resolutionDuration, err = meter.Float64Histogram(
		"attachment_resolution_duration_seconds",
		metric.WithDescription("Attachment decode, parse and persist duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_resolution_duration_seconds histogram: %w", err)
	}

	m.spillsTotal, err = meter.Int64Counter(
		"attachment_spills_total",
		metric.WithDescription("Total number of payloads written to the work directory"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_spills_total counter: %w", err)
	}

	m.spilledBytes, err = meter.Int64Histogram(
		"attachment_spilled_bytes",
		metric.WithDescription("Size of payloads written to the work directory"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(o.spillSizeBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_spilled_bytes histogram: %w", err)
	}

	m.sweepRemovedTotal, err = meter.Int64Counter(
		"attachment_sweep_removed_total",
		metric.WithDescription("Total number of spill files removed by retention sweeps"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment_sweep_removed_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// The account label is only added when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAttachmentResolution records one pass through the attachment pipeline.
//
// Parameters:
//   - category: content category (text, spreadsheet, office-document, binary)
//   - outcome: OutcomeInline, OutcomeSpilled, OutcomeDegraded or OutcomeFailed
//   - duration: time from decode to response
func (m *Metrics) RecordAttachmentResolution(ctx context.Context, category, outcome string, duration time.Duration) {
	if m == nil || m.resolutionsTotal == nil || m.resolutionDuration == nil {
		return // Instrumentation not initialized
	}

	m.resolutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrCategory, category),
		attribute.String(attrOutcome, outcome),
	))
	m.resolutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrCategory, category),
	))
}

// RecordSpill records a payload written to the work directory.
func (m *Metrics) RecordSpill(ctx context.Context, category string, size int64) {
	if m == nil || m.spillsTotal == nil || m.spilledBytes == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrCategory, category))
	m.spillsTotal.Add(ctx, 1, attrs)
	m.spilledBytes.Record(ctx, size, attrs)
}

// RecordSweep records the number of files removed by a retention sweep.
func (m *Metrics) RecordSweep(ctx context.Context, removed int) {
	if m == nil || m.sweepRemovedTotal == nil || removed <= 0 {
		return
	}
	m.sweepRemovedTotal.Add(ctx, int64(removed))
}
