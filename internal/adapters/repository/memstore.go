package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/metrics"
)

const defaultHistoryLimit = 20

// InMemoryStore keeps matches and tactic versions in memory.
//
// Writes go through the mutex. Match listings are served from an immutable
// catalog that is republished after every match write.
type InMemoryStore struct {
	mu           sync.RWMutex
	matches      map[string]model.Match
	tactics      map[string][]model.Tactic
	versions     map[string]int
	historyLimit int
	seed         []model.Match
	now          func() time.Time

	catalog atomic.Pointer[[]model.Match]
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs a store seeded with Fixtures unless WithMatches
// is given.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		matches:      make(map[string]model.Match),
		tactics:      make(map[string][]model.Tactic),
		versions:     make(map[string]int),
		historyLimit: defaultHistoryLimit,
		now:          time.Now,
	}
	s.seed = Fixtures(time.Now())
	for _, opt := range opts {
		opt(s)
	}
	for _, m := range s.seed {
		if m.ID != "" {
			s.matches[m.ID] = m
		}
	}
	s.seed = nil
	s.publishCatalog()
	return s
}

// publishCatalog rebuilds the sorted match list. Callers hold mu or own s.
func (s *InMemoryStore) publishCatalog() {
	list := make([]model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].ID < list[j].ID
	})
	s.catalog.Store(&list)
	metrics.UpdateRepositoryMatches(len(list))
}

// Matches implements Store.Matches.
func (s *InMemoryStore) Matches(_ context.Context) ([]model.Match, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()
	list := *s.catalog.Load()
	return append([]model.Match(nil), list...), nil
}

// Match implements Store.Match.
func (s *InMemoryStore) Match(_ context.Context, id string) (model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Match{}, fmt.Errorf("match %q: %w", id, ErrNotFound)
	}
	return m, nil
}

// SaveMatch implements Store.SaveMatch.
func (s *InMemoryStore) SaveMatch(_ context.Context, m model.Match) error {
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidMatch)
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
	s.publishCatalog()
	return nil
}

// SaveTactic implements Store.SaveTactic. Versions start at 1 and increase
// monotonically per match even when old versions are trimmed.
func (s *InMemoryStore) SaveTactic(_ context.Context, matchID string, snap model.Snapshot) (model.Tactic, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[matchID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Tactic{}, fmt.Errorf("match %q: %w", matchID, ErrNotFound)
	}

	s.versions[matchID]++
	t := model.Tactic{
		MatchID:  matchID,
		Version:  s.versions[matchID],
		Snapshot: snap,
		SavedAt:  s.now(),
	}
	history := append(s.tactics[matchID], t)
	if len(history) > s.historyLimit {
		history = append([]model.Tactic(nil), history[len(history)-s.historyLimit:]...)
	}
	s.tactics[matchID] = history
	metrics.UpdateTacticsStored(s.tacticCountLocked())
	return t, nil
}

func (s *InMemoryStore) tacticCountLocked() int {
	n := 0
	for _, h := range s.tactics {
		n += len(h)
	}
	return n
}

// LatestTactic implements Store.LatestTactic.
func (s *InMemoryStore) LatestTactic(_ context.Context, matchID string) (model.Tactic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.tactics[matchID]
	if len(h) == 0 {
		return model.Tactic{}, fmt.Errorf("tactic for match %q: %w", matchID, ErrNotFound)
	}
	return h[len(h)-1], nil
}

// Tactics implements Store.Tactics.
func (s *InMemoryStore) Tactics(_ context.Context, matchID string) ([]model.Tactic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.matches[matchID]; !ok {
		return nil, fmt.Errorf("match %q: %w", matchID, ErrNotFound)
	}
	return append([]model.Tactic(nil), s.tactics[matchID]...), nil
}

// Count implements Store.Count.
func (s *InMemoryStore) Count(_ context.Context) int {
	return len(*s.catalog.Load())
}
