package attachment

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{
		EnvWorkDir, EnvMaxResponseBytes, EnvMaxSheets, EnvMaxRowsPerSheet,
		EnvMaxTextLength, EnvExtractTimeout, EnvRetention, EnvIncludeRaw,
	} {
		t.Setenv(key, "")
	}

	want := Config{
		MaxSize:         1_048_576,
		MaxSheets:       10,
		MaxRowsPerSheet: 1000,
		MaxTextLength:   50000,
		Retention:       24 * time.Hour,
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultConfigFromEnvironment(t *testing.T) {
	t.Setenv(EnvWorkDir, "/var/lib/inboxcontent")
	t.Setenv(EnvMaxResponseBytes, "524288")
	t.Setenv(EnvMaxSheets, "3")
	t.Setenv(EnvMaxRowsPerSheet, "200")
	t.Setenv(EnvMaxTextLength, "1000")
	t.Setenv(EnvExtractTimeout, "45")
	t.Setenv(EnvRetention, "2h")
	t.Setenv(EnvIncludeRaw, "true")

	want := Config{
		WorkDir:         "/var/lib/inboxcontent",
		MaxSize:         524288,
		MaxSheets:       3,
		MaxRowsPerSheet: 200,
		MaxTextLength:   1000,
		ExtractTimeout:  45 * time.Second,
		Retention:       2 * time.Hour,
		IncludeRaw:      true,
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultConfigIgnoresInvalidValues(t *testing.T) {
	t.Setenv(EnvMaxSheets, "many")
	t.Setenv(EnvExtractTimeout, "soon")
	t.Setenv(EnvIncludeRaw, "perhaps")

	cfg := DefaultConfig()
	if cfg.MaxSheets != 10 {
		t.Errorf("MaxSheets = %d, want 10", cfg.MaxSheets)
	}
	if cfg.ExtractTimeout != 0 {
		t.Errorf("ExtractTimeout = %s, want 0", cfg.ExtractTimeout)
	}
	if cfg.IncludeRaw {
		t.Error("IncludeRaw should fall back to false")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig("/tmp", 1024)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero max size", mutate: func(c *Config) { c.MaxSize = 0 }, wantErr: true},
		{name: "negative sheets", mutate: func(c *Config) { c.MaxSheets = -1 }, wantErr: true},
		{name: "zero rows", mutate: func(c *Config) { c.MaxRowsPerSheet = 0 }, wantErr: true},
		{name: "zero text length", mutate: func(c *Config) { c.MaxTextLength = 0 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.ExtractTimeout = -time.Second }, wantErr: true},
		{name: "zero retention", mutate: func(c *Config) { c.Retention = 0 }, wantErr: true},
		{name: "timeout set", mutate: func(c *Config) { c.ExtractTimeout = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
