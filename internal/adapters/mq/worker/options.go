package worker

import (
	"time"

	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker or a Pool.
type Option func(*settings)

type settings struct {
	name       string
	logger     logger.Logger
	minLatency time.Duration
	maxLatency time.Duration
	seed       int64
}

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLatencyRange sets the simulated backend write latency. A zero range
// disables the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *settings) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed seeds the latency jitter.
func WithSeed(seed int64) Option {
	return func(s *settings) {
		s.seed = seed
	}
}
