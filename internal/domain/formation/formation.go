// Package formation maps a named formation and a side to the initial
// marker layout on the pitch.
//
// Tables are authored for the home side, which defends the bottom half
// (goalkeeper near y=95). The away side is the point reflection of the home
// layout through the centre spot: both x and y are mirrored, so the away
// left-back stands opposite the home right-back.
package formation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/pitchside/internal/domain/model"
)

// PlayersPerSide is the number of markers a formation produces.
const PlayersPerSide = 11

// Marker colors, assigned by side only.
const (
	HomeColor = "hsl(210, 80%, 55%)"
	AwayColor = "hsl(0, 80%, 55%)"
)

// Formation is a tag from the closed set of supported formations.
type Formation string

// Supported formations.
const (
	F442 Formation = "4-4-2"
	F433 Formation = "4-3-3"
	F352 Formation = "3-5-2"
	F451 Formation = "4-5-1"
	F532 Formation = "5-3-2"
)

type pos = model.Coordinate

// tables holds home-side positions: goalkeeper, defenders, midfielders, forwards.
var tables = map[Formation][PlayersPerSide]pos{
	F442: {
		{X: 50, Y: 95},
		{X: 15, Y: 85}, {X: 35, Y: 88}, {X: 65, Y: 88}, {X: 85, Y: 85},
		{X: 15, Y: 65}, {X: 35, Y: 68}, {X: 65, Y: 68}, {X: 85, Y: 65},
		{X: 40, Y: 55}, {X: 60, Y: 55},
	},
	F433: {
		{X: 50, Y: 95},
		{X: 15, Y: 85}, {X: 35, Y: 88}, {X: 65, Y: 88}, {X: 85, Y: 85},
		{X: 25, Y: 70}, {X: 50, Y: 72}, {X: 75, Y: 70},
		{X: 20, Y: 55}, {X: 50, Y: 52}, {X: 80, Y: 55},
	},
	F352: {
		{X: 50, Y: 95},
		{X: 25, Y: 88}, {X: 50, Y: 90}, {X: 75, Y: 88},
		{X: 10, Y: 65}, {X: 30, Y: 70}, {X: 50, Y: 68}, {X: 70, Y: 70}, {X: 90, Y: 65},
		{X: 40, Y: 55}, {X: 60, Y: 55},
	},
	F451: {
		{X: 50, Y: 95},
		{X: 15, Y: 85}, {X: 35, Y: 88}, {X: 65, Y: 88}, {X: 85, Y: 85},
		{X: 10, Y: 65}, {X: 30, Y: 70}, {X: 50, Y: 68}, {X: 70, Y: 70}, {X: 90, Y: 65},
		{X: 50, Y: 55},
	},
	F532: {
		{X: 50, Y: 95},
		{X: 10, Y: 85}, {X: 30, Y: 88}, {X: 50, Y: 90}, {X: 70, Y: 88}, {X: 90, Y: 85},
		{X: 25, Y: 70}, {X: 50, Y: 72}, {X: 75, Y: 70},
		{X: 40, Y: 55}, {X: 60, Y: 55},
	},
}

var order = []Formation{F442, F433, F352, F451, F532}

// All returns the supported formations in display order.
func All() []Formation {
	out := make([]Formation, len(order))
	copy(out, order)
	return out
}

// Valid reports whether f is in the supported set.
func (f Formation) Valid() bool {
	_, ok := tables[f]
	return ok
}

func (f Formation) String() string { return string(f) }

// Parse validates a formation tag.
func Parse(s string) (Formation, error) {
	f := Formation(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormation, s)
	}
	return f, nil
}

// Role is the line a formation slot belongs to.
type Role string

// Roles.
const (
	Goalkeeper Role = "goalkeeper"
	Defender   Role = "defender"
	Midfielder Role = "midfielder"
	Forward    Role = "forward"
)

// Role returns the line of slot index in f. Slot 0 is always the goalkeeper;
// the remaining slots follow the defender-midfielder-forward counts of the tag.
func (f Formation) Role(index int) (Role, error) {
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormation, string(f))
	}
	if index < 0 || index >= PlayersPerSide {
		return "", fmt.Errorf("slot %d out of range", index)
	}
	if index == 0 {
		return Goalkeeper, nil
	}
	lines := []Role{Defender, Midfielder, Forward}
	n := index
	for i, part := range strings.Split(string(f), "-") {
		count, err := strconv.Atoi(part)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidFormation, string(f))
		}
		if n <= count {
			return lines[i], nil
		}
		n -= count
	}
	return "", fmt.Errorf("slot %d out of range", index)
}

// Layout returns the 11 normalized positions of f for side. It is pure and
// deterministic: the away layout is the home layout with both axes mirrored.
func Layout(f Formation, side model.Side) ([]model.Coordinate, error) {
	table, ok := tables[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormation, string(f))
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, string(side))
	}
	out := make([]model.Coordinate, PlayersPerSide)
	for i, p := range table {
		if side == model.Away {
			p = Mirror(p)
		}
		out[i] = p
	}
	return out, nil
}

// Mirror reflects a coordinate through the centre spot.
func Mirror(c model.Coordinate) model.Coordinate {
	return model.Coordinate{X: model.MaxCoord - c.X, Y: model.MaxCoord - c.Y}
}

// Markers builds the marker set of f for side, ids H1..H11 or A1..A11.
func Markers(f Formation, side model.Side) ([]model.Marker, error) {
	coords, err := Layout(f, side)
	if err != nil {
		return nil, err
	}
	color := HomeColor
	if side == model.Away {
		color = AwayColor
	}
	markers := make([]model.Marker, len(coords))
	for i, c := range coords {
		id := side.Prefix() + strconv.Itoa(i+1)
		markers[i] = model.Marker{
			ID:       id,
			Label:    id,
			Position: c,
			Side:     side,
			Role:     i,
			Kind:     model.KindPlayer,
			Color:    color,
		}
	}
	return markers, nil
}
