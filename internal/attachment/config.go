package attachment

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/teemow/inboxcontent/internal/document"
	"github.com/teemow/inboxcontent/internal/overflow"
	"github.com/teemow/inboxcontent/internal/spreadsheet"
)

// Environment variables read by DefaultConfig.
const (
	EnvWorkDir          = "ATTACHMENT_WORK_DIR"
	EnvMaxResponseBytes = "ATTACHMENT_MAX_RESPONSE_BYTES"
	EnvMaxSheets        = "ATTACHMENT_MAX_SHEETS"
	EnvMaxRowsPerSheet  = "ATTACHMENT_MAX_ROWS_PER_SHEET"
	EnvMaxTextLength    = "ATTACHMENT_MAX_TEXT_LENGTH"
	EnvExtractTimeout   = "ATTACHMENT_EXTRACT_TIMEOUT"
	EnvRetention        = "ATTACHMENT_RETENTION"
	EnvIncludeRaw       = "ATTACHMENT_INCLUDE_RAW"
)

// Config holds the ceilings and locations used by a Resolver.
type Config struct {
	// WorkDir is where oversized payloads are written. Empty selects the
	// platform temp directory (see overflow.ResolveWorkDir).
	WorkDir string

	// MaxSize is the largest serialized response returned inline
	// (default: 1 MiB)
	MaxSize int

	// MaxSheets and MaxRowsPerSheet bound spreadsheet output (default: 10, 1000)
	MaxSheets       int
	MaxRowsPerSheet int

	// MaxTextLength bounds extracted document text in characters (default: 50000)
	MaxTextLength int

	// ExtractTimeout bounds a single document extraction. Zero means no
	// timeout beyond the request context.
	ExtractTimeout time.Duration

	// Retention is the age after which spilled files are swept (default: 24h)
	Retention time.Duration

	// IncludeRaw adds the Base64 payload to every envelope, not only to
	// binary pass-through responses.
	IncludeRaw bool
}

// DefaultConfig returns a Config with defaults overridden by environment
// variables. Unparseable values fall back to the default.
func DefaultConfig() Config {
	return Config{
		WorkDir:         getEnvOrDefault(EnvWorkDir, ""),
		MaxSize:         getEnvIntOrDefault(EnvMaxResponseBytes, overflow.DefaultMaxSize),
		MaxSheets:       getEnvIntOrDefault(EnvMaxSheets, spreadsheet.DefaultMaxSheets),
		MaxRowsPerSheet: getEnvIntOrDefault(EnvMaxRowsPerSheet, spreadsheet.DefaultMaxRowsPerSheet),
		MaxTextLength:   getEnvIntOrDefault(EnvMaxTextLength, document.DefaultMaxTextLength),
		ExtractTimeout:  getEnvDurationOrDefault(EnvExtractTimeout, 0),
		Retention:       getEnvDurationOrDefault(EnvRetention, overflow.DefaultRetention),
		IncludeRaw:      getEnvBoolOrDefault(EnvIncludeRaw, false),
	}
}

// Validate checks that every ceiling is usable.
func (c *Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("max response size must be positive, got %d", c.MaxSize)
	}
	if c.MaxSheets <= 0 {
		return fmt.Errorf("max sheets must be positive, got %d", c.MaxSheets)
	}
	if c.MaxRowsPerSheet <= 0 {
		return fmt.Errorf("max rows per sheet must be positive, got %d", c.MaxRowsPerSheet)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("max text length must be positive, got %d", c.MaxTextLength)
	}
	if c.ExtractTimeout < 0 {
		return fmt.Errorf("extract timeout must not be negative, got %s", c.ExtractTimeout)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", c.Retention)
	}
	return nil
}

// spreadsheetOptions returns the spreadsheet ceilings of c.
func (c Config) spreadsheetOptions() spreadsheet.Options {
	return spreadsheet.Options{
		MaxSheets:       c.MaxSheets,
		MaxRowsPerSheet: c.MaxRowsPerSheet,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the int value of an environment variable or a default value.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the duration value of an environment variable
// or a default value. Both Go durations ("90s") and plain seconds ("90") are accepted.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
