package instrumentation

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Environment variables read by DefaultConfig.
const (
	EnvEnabled           = "INSTRUMENTATION_ENABLED"
	EnvServiceName       = "OTEL_SERVICE_NAME"
	EnvMetricsExporter   = "METRICS_EXPORTER"
	EnvTracingExporter   = "TRACING_EXPORTER"
	EnvOTLPEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure      = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvTraceSamplingRate = "OTEL_TRACES_SAMPLER_ARG"
	EnvDetailedLabels    = "METRICS_DETAILED_LABELS"
	EnvSpillSizeBuckets  = "METRICS_SPILL_SIZE_BUCKETS"
	EnvAuditEnabled      = "AUDIT_LOGGING_ENABLED"
	EnvAuditFilenames    = "AUDIT_LOGGING_INCLUDE_FILENAMES"
)

// DefaultSpillSizeBuckets are the attachment_spilled_bytes boundaries used
// when none are configured. Spills start at the 1 MiB response limit.
var DefaultSpillSizeBuckets = []float64{1 << 20, 2 << 20, 5 << 20, 10 << 20, 25 << 20, 50 << 20, 100 << 20}

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: inboxcontent)
	ServiceName    string
	ServiceVersion string

	// Enabled turns metrics and tracing on (default: true)
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout (default: prometheus)
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none (default: none)
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Traces carry attachment
	// categories and sizes; keep TLS outside local development.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// DetailedLabels adds the account label to tool metrics.
	DetailedLabels bool

	// SpillSizeBuckets are the attachment_spilled_bytes histogram boundaries
	// in bytes, ascending.
	SpillSizeBuckets []float64

	Audit AuditConfig
}

// AuditConfig controls the per-tool-call audit log.
type AuditConfig struct {
	// Enabled writes one audit entry per tool call (default: true)
	Enabled bool

	// IncludeFilenames logs attachment filenames and spill paths. When
	// false (default) only the file extension is logged.
	IncludeFilenames bool
}

// DefaultConfig returns a Config built from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       getEnvOrDefault(EnvServiceName, "inboxcontent"),
		ServiceVersion:    "unknown",
		Enabled:           getEnvBoolOrDefault(EnvEnabled, true),
		MetricsExporter:   getEnvOrDefault(EnvMetricsExporter, ExporterPrometheus),
		TracingExporter:   getEnvOrDefault(EnvTracingExporter, ExporterNone),
		OTLPEndpoint:      getEnvOrDefault(EnvOTLPEndpoint, ""),
		OTLPInsecure:      getEnvBoolOrDefault(EnvOTLPInsecure, false),
		TraceSamplingRate: getEnvFloatOrDefault(EnvTraceSamplingRate, 0.1),
		DetailedLabels:    getEnvBoolOrDefault(EnvDetailedLabels, false),
		SpillSizeBuckets:  getEnvBucketsOrDefault(EnvSpillSizeBuckets, DefaultSpillSizeBuckets),
		Audit: AuditConfig{
			Enabled:          getEnvBoolOrDefault(EnvAuditEnabled, true),
			IncludeFilenames: getEnvBoolOrDefault(EnvAuditFilenames, false),
		},
	}
}

// Validate checks exporter names, the sampling rate and the spill buckets.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if err := validateBuckets(c.SpillSizeBuckets); err != nil {
		return fmt.Errorf("invalid spill size buckets: %w", err)
	}
	return nil
}

func validateBuckets(buckets []float64) error {
	for i, b := range buckets {
		if b <= 0 {
			return fmt.Errorf("boundary %d must be positive, got %g", i, b)
		}
		if i > 0 && b <= buckets[i-1] {
			return fmt.Errorf("boundaries must be ascending, %g follows %g", b, buckets[i-1])
		}
	}
	return nil
}

// ParseSizeBuckets parses a comma separated list of sizes such as
// "1MiB,10MiB,100MB" into histogram boundaries in bytes.
func ParseSizeBuckets(s string) ([]float64, error) {
	var buckets []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := humanize.ParseBytes(field)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", field, err)
		}
		buckets = append(buckets, float64(n))
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("no sizes in %q", s)
	}
	if err := validateBuckets(buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvBucketsOrDefault falls back to a copy of defaultValue when the
// variable is unset or unparseable.
func getEnvBucketsOrDefault(key string, defaultValue []float64) []float64 {
	if value := os.Getenv(key); value != "" {
		if buckets, err := ParseSizeBuckets(value); err == nil {
			return buckets
		}
	}
	return slices.Clone(defaultValue)
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceGmail = "gmail"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
