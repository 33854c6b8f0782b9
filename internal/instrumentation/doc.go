// Package instrumentation provides OpenTelemetry instrumentation
// for the inboxcontent MCP server.
//
// This package enables observability through:
//   - OpenTelemetry metrics for HTTP requests, Gmail API calls and attachment resolution
//   - Distributed tracing for tool invocations and the attachment pipeline
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Attachment Metrics:
//   - attachment_resolutions_total: Counter of resolved attachments by category and outcome
//   - attachment_resolution_duration_seconds: Histogram of decode, parse and persist time
//   - attachment_spills_total: Counter of payloads written to the work directory
//   - attachment_spilled_bytes: Histogram of spilled file sizes
//   - attachment_sweep_removed_total: Counter of expired spill files removed
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Google API calls (google.<service>.<operation>)
//   - Attachment pipeline stages (attachment.<stage>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxcontent)
//   - METRICS_DETAILED_LABELS: Add the account label to tool metrics (default: false)
//   - METRICS_SPILL_SIZE_BUCKETS: attachment_spilled_bytes boundaries, e.g. "1MiB,10MiB,100MiB"
//   - AUDIT_LOGGING_ENABLED: One audit entry per tool call (default: true)
//   - AUDIT_LOGGING_INCLUDE_FILENAMES: Log attachment filenames and spill paths
//     instead of the extension only (default: false)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "inboxcontent",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordAttachmentResolution(ctx, "spreadsheet", instrumentation.OutcomeSpilled, time.Since(start))
package instrumentation
