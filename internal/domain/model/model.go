// Package model contains the domain types shared by the board, the layout
// engine and the adapters.
package model

import (
	"math"
	"strings"
	"time"
)

// Normalized pitch bounds. Coordinates are percentages of the pitch
// width/height with the origin top-left; y=50 is the halfway line.
const (
	MinCoord = 0.0
	MaxCoord = 100.0
	Halfway  = 50.0
)

// Coordinate is a normalized pitch position.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp returns c confined to [0,100] on both axes.
func (c Coordinate) Clamp() Coordinate {
	return Coordinate{X: clamp(c.X, MinCoord, MaxCoord), Y: clamp(c.Y, MinCoord, MaxCoord)}
}

// Distance is the Euclidean distance between two coordinates in normalized units.
func (c Coordinate) Distance(o Coordinate) float64 {
	return math.Hypot(o.X-c.X, o.Y-c.Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Side identifies which team a marker belongs to.
type Side string

// Sides.
const (
	Home Side = "home"
	Away Side = "away"
)

// Valid reports whether s is home or away.
func (s Side) Valid() bool { return s == Home || s == Away }

// Prefix is the id prefix used for markers of this side.
func (s Side) Prefix() string {
	if s == Away {
		return "A"
	}
	return "H"
}

// SideFromID recovers the side from a marker id prefix.
func SideFromID(id string) (Side, bool) {
	switch {
	case strings.HasPrefix(id, "H"):
		return Home, true
	case strings.HasPrefix(id, "A"):
		return Away, true
	}
	return "", false
}

// Confine applies the half-confinement rule for side s: home markers stay
// at y>=50, away markers at y<=50. Both axes are clamped to [0,100].
func (s Side) Confine(c Coordinate) Coordinate {
	c = c.Clamp()
	switch s {
	case Home:
		c.Y = math.Max(Halfway, c.Y)
	case Away:
		c.Y = math.Min(Halfway, c.Y)
	}
	return c
}

// Kind is the type of tactical element a marker represents.
type Kind string

// Marker kinds.
const (
	KindPlayer Kind = "player"
	KindCone   Kind = "cone"
	KindBall   Kind = "ball"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k == KindPlayer || k == KindCone || k == KindBall }

// Marker is one on-pitch element.
type Marker struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Position Coordinate `json:"position"`
	Side     Side       `json:"side,omitempty"`
	Role     int        `json:"role"`
	Kind     Kind       `json:"kind"`
	Color    string     `json:"color"`
}

// Arrow is a user-drawn directional annotation.
type Arrow struct {
	ID    string     `json:"id"`
	Start Coordinate `json:"start"`
	End   Coordinate `json:"end"`
}

// Length returns the arrow length in normalized units.
func (a Arrow) Length() float64 { return a.Start.Distance(a.End) }

// Selection is emitted when a marker is clicked without being dragged.
type Selection struct {
	MarkerID string    `json:"marker_id"`
	Label    string    `json:"label"`
	Side     Side      `json:"side"`
	At       time.Time `json:"at"`
}

// Snapshot is the full board state handed to the persistence collaborator.
type Snapshot struct {
	HomeFormation string   `json:"home_formation,omitempty"`
	AwayFormation string   `json:"away_formation,omitempty"`
	Markers       []Marker `json:"markers"`
	Arrows        []Arrow  `json:"arrows"`
}

// Team is a club taking part in a match.
type Team struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

// Match is a scouted fixture. Closed matches expose read-only boards.
type Match struct {
	ID              string    `json:"id"`
	HomeTeam        Team      `json:"home_team"`
	AwayTeam        Team      `json:"away_team"`
	Date            time.Time `json:"date"`
	Competition     string    `json:"competition"`
	Stadium         string    `json:"stadium,omitempty"`
	IsClosed        bool      `json:"is_closed"`
	AssignedScoutID string    `json:"assigned_scout_id,omitempty"`
}

// Tactic is a saved board snapshot for a match.
type Tactic struct {
	MatchID  string    `json:"match_id"`
	Version  int       `json:"version"`
	Snapshot Snapshot  `json:"snapshot"`
	SavedAt  time.Time `json:"saved_at"`
}

// SaveJob carries a snapshot through the save pipeline. Result receives at
// most one value once the job is persisted or fails; it should be buffered.
type SaveJob struct {
	ID       string
	MatchID  string
	Snapshot Snapshot
	Result   chan SaveResult

	// Done, when closed, tells workers the requester gave up.
	Done <-chan struct{}
}

// Resolve delivers r without blocking. A job nobody waits for is dropped.
func (j SaveJob) Resolve(r SaveResult) bool { //nolint:gocritic // hugeParam: value receiver matches channel semantics
	select {
	case j.Result <- r:
		return true
	default:
		return false
	}
}

// SaveResult is the outcome of a SaveJob.
type SaveResult struct {
	Tactic Tactic
	Err    error
}
