package service

import (
	"time"

	"github.com/okian/pitchside/internal/adapters/repository"
	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of save workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the save queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency-key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSaveLatencyRange sets the simulated backend write latency.
func WithSaveLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.saveMinLatency = minLatency
			s.saveMaxLatency = maxLatency
		}
	}
}

// WithSaveTimeout bounds how long a save waits for its worker.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// WithGestureThresholds sets the drag threshold in pixels and the minimum
// arrow length in normalized units for new boards.
func WithGestureThresholds(dragPX, arrowMin float64) Option {
	return func(s *Service) {
		if dragPX >= 0 {
			s.dragThreshold = dragPX
		}
		if arrowMin >= 0 {
			s.arrowMinLength = arrowMin
		}
	}
}

// WithDefaultFormations sets the formations new boards start with.
func WithDefaultFormations(home, away formation.Formation) Option {
	return func(s *Service) {
		if home.Valid() && away.Valid() {
			s.homeFormation = home
			s.awayFormation = away
		}
	}
}

// WithStore injects the match and tactic store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
