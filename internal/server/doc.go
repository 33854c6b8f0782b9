// Package server holds the state shared by the MCP tool handlers.
//
// ServerContext owns the attachment Resolver, caches one Gmail client per
// account (created lazily once a token exists) and carries the optional
// metrics recorder and audit logger used by the instrumented tool wrapper.
//
// HealthChecker serves the Kubernetes liveness and readiness endpoints.
// Readiness includes a check that the spill work directory still accepts
// files. MetricsServer exposes /metrics (and the health endpoints, when
// given a HealthChecker) on a port separate from MCP traffic.
package server
