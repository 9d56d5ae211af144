package repository

import (
	"time"

	"github.com/okian/pitchside/internal/domain/model"
)

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithMatches replaces the fixture matches the store starts with.
func WithMatches(matches ...model.Match) Option {
	return func(s *InMemoryStore) {
		s.seed = matches
	}
}

// WithHistoryLimit caps how many tactic versions are retained per match.
func WithHistoryLimit(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithClock overrides the time source used to stamp tactics.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
