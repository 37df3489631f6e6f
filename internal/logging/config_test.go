package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		want zerolog.Level
		ok   bool
	}{
		"":          {zerolog.InfoLevel, false},
		"debug":     {zerolog.DebugLevel, true},
		" WARNING ": {zerolog.WarnLevel, true},
		"off":       {zerolog.Disabled, true},
		"trace":     {zerolog.TraceLevel, true},
		"loud":      {zerolog.InfoLevel, false},
	}
	for raw, tc := range cases {
		got, ok := parseLevel(raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLevel(%q) = %v,%v want %v,%v", raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogJSON, "1")
	t.Setenv(EnvLogNoColor, "nope")

	opts := defaultOptions(ProfileVerbose)
	applyEnvOverrides(&opts)
	if opts.Level != zerolog.ErrorLevel {
		t.Fatalf("expected error level, got %v", opts.Level)
	}
	if opts.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !opts.JSON {
		t.Fatalf("expected json output")
	}
	if opts.NoColor {
		t.Fatalf("unparseable bool must leave default")
	}
}
