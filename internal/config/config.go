// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/pitchside/internal/domain/formation"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SaveQueueSize bounds the in-memory save queue.
	SaveQueueSize int `koanf:"save_queue_size"`

	// SaveWorkerCount sets the number of persistence workers.
	SaveWorkerCount int `koanf:"save_worker_count"`

	// SaveLatencyMinMS and SaveLatencyMaxMS simulate backend write latency.
	SaveLatencyMinMS int `koanf:"save_latency_min_ms"`
	SaveLatencyMaxMS int `koanf:"save_latency_max_ms"`

	// SaveTimeoutMS bounds a single save round trip.
	SaveTimeoutMS int `koanf:"save_timeout_ms"`

	// DragThresholdPX is the pointer travel that turns a press into a drag.
	DragThresholdPX float64 `koanf:"drag_threshold_px"`

	// ArrowMinLength is the length an arrow must exceed to be kept.
	ArrowMinLength float64 `koanf:"arrow_min_length"`

	// HomeFormation and AwayFormation seed new boards.
	HomeFormation string `koanf:"home_formation"`
	AwayFormation string `koanf:"away_formation"`

	// DedupeSize bounds the save idempotency-key cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		SaveQueueSize:    1024,
		SaveWorkerCount:  runtime.NumCPU(),
		SaveLatencyMinMS: 800,
		SaveLatencyMaxMS: 1200,
		SaveTimeoutMS:    10_000,
		DragThresholdPX:  5,
		ArrowMinLength:   2,
		HomeFormation:    string(formation.F442),
		AwayFormation:    string(formation.F433),
		DedupeSize:       10_000,
	}
}

// SaveTimeout returns SaveTimeoutMS as a duration.
func (c *Config) SaveTimeout() time.Duration {
	return time.Duration(c.SaveTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.SaveQueueSize <= 0:
		return fmt.Errorf("%w: save_queue_size must be positive", ErrInvalidConfig)
	case c.SaveWorkerCount <= 0:
		return fmt.Errorf("%w: save_worker_count must be positive", ErrInvalidConfig)
	case c.SaveLatencyMinMS < 0 || c.SaveLatencyMaxMS < c.SaveLatencyMinMS:
		return fmt.Errorf("%w: save latency range [%d,%d] is invalid",
			ErrInvalidConfig, c.SaveLatencyMinMS, c.SaveLatencyMaxMS)
	case c.SaveTimeoutMS <= 0:
		return fmt.Errorf("%w: save_timeout_ms must be positive", ErrInvalidConfig)
	case c.DragThresholdPX < 0:
		return fmt.Errorf("%w: drag_threshold_px must not be negative", ErrInvalidConfig)
	case c.ArrowMinLength < 0:
		return fmt.Errorf("%w: arrow_min_length must not be negative", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}
	for _, f := range []string{c.HomeFormation, c.AwayFormation} {
		if !formation.Formation(f).Valid() {
			return fmt.Errorf("%w: unknown formation %q", ErrInvalidConfig, f)
		}
	}
	return nil
}
