// Package boardsim drives a running board service with synthetic gestures and
// checks the positional invariants of every board it touches.
package boardsim

import (
	"time"

	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Matches  []string      // Match ids to drive; empty means every open match
	Gestures int           // Gestures per board
	Workers  int           // Boards driven concurrently
	Timeout  time.Duration // HTTP request timeout
	SaveWait time.Duration // How long a save request waits for completion
	Sketch   bool          // Also drive the sketch board of each match
	Seed     uint64        // Seed of the gesture generator; 0 picks one
	LogFile  string        // Log file for run output
	Verbose  bool          // Enable verbose logging
}

// Rect is the simulated board bounding box in client pixels.
var Rect = board.Rect{Left: 40, Top: 80, Width: 680, Height: 1050}

// View is the subset of a board response the simulator inspects.
type View struct {
	MatchID       string         `json:"match_id"`
	Variant       string         `json:"variant"`
	ReadOnly      bool           `json:"read_only"`
	Tool          string         `json:"tool"`
	State         string         `json:"state"`
	HomeFormation string         `json:"home_formation"`
	AwayFormation string         `json:"away_formation"`
	Markers       []model.Marker `json:"markers"`
	Arrows        []model.Arrow  `json:"arrows"`
}

// PointerResult mirrors the pointer endpoint response.
type PointerResult struct {
	State     string           `json:"state"`
	Selection *model.Selection `json:"selection,omitempty"`
}

// SaveOutcome mirrors the save endpoint response.
type SaveOutcome struct {
	Status string        `json:"status"`
	Tactic *model.Tactic `json:"tactic,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Boards     int
	Gestures   int
	Drags      int
	Clicks     int
	Arrows     int
	Undos      int
	Cancels    int
	Selections int
	Saves      int
	Duplicates int
	Failures   int
	Violations []Violation
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

func (s *Stats) add(o *Stats) {
	s.Boards += o.Boards
	s.Gestures += o.Gestures
	s.Drags += o.Drags
	s.Clicks += o.Clicks
	s.Arrows += o.Arrows
	s.Undos += o.Undos
	s.Cancels += o.Cancels
	s.Selections += o.Selections
	s.Saves += o.Saves
	s.Duplicates += o.Duplicates
	s.Failures += o.Failures
	s.Violations = append(s.Violations, o.Violations...)
}
