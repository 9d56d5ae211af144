package boardsim

import (
	"fmt"
	"math"

	"github.com/okian/pitchside/internal/domain/model"
)

// positionTolerance absorbs float rounding across the JSON round trip.
const positionTolerance = 1e-6

// Invariant rules checked on every board.
const (
	RuleBounds      = "bounds"
	RuleHalf        = "half"
	RuleArrowBounds = "arrow_bounds"
	RuleDragTarget  = "drag_target"
)

// Violation is one broken invariant observed on a board.
type Violation struct {
	Board   string
	Gesture int
	Rule    string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s gesture %d: %s: %s", v.Board, v.Gesture, v.Rule, v.Detail)
}

func inBounds(c model.Coordinate) bool {
	return c.X >= model.MinCoord && c.X <= model.MaxCoord && c.Y >= model.MinCoord && c.Y <= model.MaxCoord
}

// CheckView returns the invariant violations visible on v: every marker and
// arrow endpoint lies on the pitch, home markers stay in the bottom half and
// away markers in the top half.
func CheckView(name string, gesture int, v View) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{Board: name, Gesture: gesture, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}
	for _, m := range v.Markers {
		if !inBounds(m.Position) {
			add(RuleBounds, "marker %s at (%.3f, %.3f)", m.ID, m.Position.X, m.Position.Y)
		}
		switch m.Side {
		case model.Home:
			if m.Position.Y < model.Halfway {
				add(RuleHalf, "home marker %s at y=%.3f", m.ID, m.Position.Y)
			}
		case model.Away:
			if m.Position.Y > model.Halfway {
				add(RuleHalf, "away marker %s at y=%.3f", m.ID, m.Position.Y)
			}
		}
	}
	for _, a := range v.Arrows {
		if !inBounds(a.Start) || !inBounds(a.End) {
			add(RuleArrowBounds, "arrow %s from (%.3f, %.3f) to (%.3f, %.3f)", a.ID, a.Start.X, a.Start.Y, a.End.X, a.End.Y)
		}
	}
	return out
}

// ExpectedDrop is where a marker of side must end up when the last pointer
// sample of its drag is p.
func ExpectedDrop(side model.Side, p Point) model.Coordinate {
	return side.Confine(Rect.Normalize(p.X, p.Y))
}

// CheckDrop compares a dragged marker with its expected position.
func CheckDrop(name string, gesture int, m model.Marker, want model.Coordinate) []Violation {
	if math.Abs(m.Position.X-want.X) <= positionTolerance && math.Abs(m.Position.Y-want.Y) <= positionTolerance {
		return nil
	}
	return []Violation{{
		Board:   name,
		Gesture: gesture,
		Rule:    RuleDragTarget,
		Detail: fmt.Sprintf("marker %s at (%.3f, %.3f), want (%.3f, %.3f)",
			m.ID, m.Position.X, m.Position.Y, want.X, want.Y),
	}}
}
