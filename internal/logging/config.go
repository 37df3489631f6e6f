package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/taskrunner/internal/observability"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "TASKRUNNER_LOG_LEVEL"
	EnvLogTimestamp = "TASKRUNNER_LOG_TIMESTAMP"
	EnvLogNoColor   = "TASKRUNNER_LOG_NOCOLOR"
	EnvLogJSON      = "TASKRUNNER_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileVerbose
	ProfileTest
)

var configureOnce sync.Once

// ConfigureRuntime installs the daemon logger; verbose lowers the level to debug.
func ConfigureRuntime(verbose bool) {
	if verbose {
		Configure(ProfileVerbose)
		return
	}
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

func Configure(profile Profile) {
	configureOnce.Do(func() {
		opts := defaultOptions(profile)
		applyEnvOverrides(&opts)
		observability.InitLogger("taskrunner", opts)
	})
}

func defaultOptions(profile Profile) observability.LoggerOptions {
	switch profile {
	case ProfileTest:
		return observability.LoggerOptions{Level: zerolog.DebugLevel, Timestamp: false, NoColor: true}
	case ProfileVerbose:
		return observability.LoggerOptions{Level: zerolog.DebugLevel, Timestamp: true}
	default:
		return observability.LoggerOptions{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(opts *observability.LoggerOptions) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		opts.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		opts.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		opts.JSON = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
