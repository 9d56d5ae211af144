// Package repository defines the match and tactic store.
package repository

import (
	"context"

	"github.com/okian/pitchside/internal/domain/model"
)

// Store provides read/write access to matches and their saved tactics.
type Store interface {
	// Matches returns every match ordered by kickoff date.
	Matches(ctx context.Context) ([]model.Match, error)

	// Match returns one match. Returns ErrNotFound if the id is unknown.
	Match(ctx context.Context, id string) (model.Match, error)

	// SaveMatch inserts or replaces a match.
	SaveMatch(ctx context.Context, m model.Match) error

	// SaveTactic stores snap as the next tactic version of the match.
	SaveTactic(ctx context.Context, matchID string, snap model.Snapshot) (model.Tactic, error)

	// LatestTactic returns the newest tactic of a match, ErrNotFound if none.
	LatestTactic(ctx context.Context, matchID string) (model.Tactic, error)

	// Tactics returns the retained tactic history of a match, oldest first.
	Tactics(ctx context.Context, matchID string) ([]model.Tactic, error)

	// Count returns the number of matches tracked.
	Count(ctx context.Context) int
}
