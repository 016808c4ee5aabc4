// Package config defines service configuration and its loading.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabasePath is the SQLite file. Empty keeps everything in memory.
	DatabasePath string `koanf:"database_path"`

	// QueueSize bounds the rank recompute queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the set of pending recompute targets.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxUploadBytes caps the request body of an import.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// SearchRateLimit is the number of searches allowed per client and
	// window. Zero disables the limit.
	SearchRateLimit         int `koanf:"search_rate_limit"`
	SearchRateWindowSeconds int `koanf:"search_rate_window_seconds"`

	// RecomputeSchedule is a cron spec for a full rank recompute. Empty
	// disables it.
	RecomputeSchedule string `koanf:"recompute_schedule"`
	// RateLimitSweepSchedule is a cron spec for dropping expired rate
	// limit counters.
	RateLimitSweepSchedule string `koanf:"rate_limit_sweep_schedule"`

	// PreschoolNameMode is "full" or "kanaOnly".
	PreschoolNameMode string `koanf:"preschool_name_mode"`
	// PreschoolMaxGrade is the highest grade printed in kana-only mode.
	PreschoolMaxGrade int `koanf:"preschool_max_grade"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		QueueSize:               1024,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              50_000,
		MaxUploadBytes:          10 << 20,
		SearchRateLimit:         10,
		SearchRateWindowSeconds: 60,
		RateLimitSweepSchedule:  "@every 10m",
		PreschoolNameMode:       "full",
		PreschoolMaxGrade:       3,
	}
}

// SearchRateWindow returns the rate-limit window as a duration.
func (c *Config) SearchRateWindow() time.Duration {
	return time.Duration(c.SearchRateWindowSeconds) * time.Second
}
