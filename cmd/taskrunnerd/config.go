package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/taskrunner/internal/runner"
)

// taskrunnerd config.toml key mapping to runner settings.
type fileConfig struct {
	SocketPath       string `toml:"socket_path"`
	StatusSocketPath string `toml:"status_socket_path"`
	MaxWorkers       int    `toml:"max_workers"`
	SubmitQueue      int    `toml:"submit_queue"`
	ReadTimeoutMS    int64  `toml:"read_timeout_ms"`
	MaxFieldBytes    int    `toml:"max_field_bytes"`
}

// loadServiceConfig decodes path and overlays only the keys it defines.
func loadServiceConfig(path string) (runner.ServiceConfig, error) {
	cfg := runner.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runner.ServiceConfig{}, fmt.Errorf("load taskrunner config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runner.ServiceConfig{}, fmt.Errorf("load taskrunner config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("socket_path") {
		cfg.SocketPath = strings.TrimSpace(raw.SocketPath)
	}
	if meta.IsDefined("status_socket_path") {
		cfg.StatusSocketPath = strings.TrimSpace(raw.StatusSocketPath)
	}
	if meta.IsDefined("max_workers") {
		cfg.MaxWorkers = raw.MaxWorkers
	}
	if meta.IsDefined("submit_queue") {
		cfg.SubmitQueue = raw.SubmitQueue
	}
	if meta.IsDefined("read_timeout_ms") {
		cfg.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("max_field_bytes") {
		cfg.MaxFieldBytes = raw.MaxFieldBytes
	}

	if err := cfg.Validate(); err != nil {
		return runner.ServiceConfig{}, fmt.Errorf("load taskrunner config: %w", err)
	}
	return cfg, nil
}
