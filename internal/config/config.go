// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CheckQueueSize bounds the in-memory intake check queue.
	CheckQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of automated screening workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the intake idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ScreeningQuorum is the number of agreeing human screening
	// judgments required to move a submission out of screening.
	ScreeningQuorum int `koanf:"screening_quorum"`

	// RubricPath points to a YAML rubric definition. Empty uses the
	// built-in sound logo rubric.
	RubricPath string `koanf:"rubric_path"`

	// MaxRankingLimit caps GET /ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// Audio intake bounds enforced by the automated screening workers.
	// Zero values disable the corresponding check.
	AudioMinDurationMS int64    `koanf:"audio_min_duration_ms"`
	AudioMaxDurationMS int64    `koanf:"audio_max_duration_ms"`
	AudioMinSampleRate int      `koanf:"audio_min_sample_rate"`
	AudioMaxChannels   int      `koanf:"audio_max_channels"`
	AudioMaxSizeBytes  int64    `koanf:"audio_max_size_bytes"`
	AudioFormats       []string `koanf:"audio_formats"`

	// Role memberships. Empty lists leave the capability open to any
	// authenticated reviewer, which suits small single-team deployments.
	Screeners []string `koanf:"screeners"`
	Panelists []string `koanf:"panelists"`
	Admins    []string `koanf:"admins"`
}

// New creates a Config populated with defaults. The audio bounds match
// the sound logo brief: 1 to 4 seconds, 44.1kHz or better, stereo at
// most, common lossless or lossy containers.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		CheckQueueSize:     100_000,
		WorkerCount:        runtime.NumCPU() * 4,
		DedupeSize:         500_000,
		ScreeningQuorum:    2,
		MaxRankingLimit:    100,
		AudioMinDurationMS: 1_000,
		AudioMaxDurationMS: 4_000,
		AudioMinSampleRate: 44_100,
		AudioMaxChannels:   2,
		AudioMaxSizeBytes:  100 << 20,
		AudioFormats:       []string{"ogg", "oga", "wav", "flac", "mp3"},
	}
}
