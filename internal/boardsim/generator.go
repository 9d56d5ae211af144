package boardsim

import (
	"math/rand/v2"

	"github.com/okian/pitchside/internal/domain/model"
)

// Kind is the type of a synthetic gesture.
type Kind int

// Gesture kinds.
const (
	KindDrag Kind = iota
	KindClick
	KindArrow
	KindUndo
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindDrag:
		return "drag"
	case KindClick:
		return "click"
	case KindArrow:
		return "arrow"
	case KindUndo:
		return "undo"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Point is a client pixel position.
type Point struct {
	X, Y float64
}

// Gesture is one planned interaction. Path holds the pointer-move samples;
// for a drag or cancel the press lands on the chosen marker.
type Gesture struct {
	Kind   Kind
	Marker int // index into the board's markers, modulo their count
	Start  Point
	Path   []Point
}

// overshoot is how far outside the board random positions may land, as a
// fraction of the board size.
const overshoot = 1.5

// Generator produces a reproducible stream of gestures.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. Equal seeds produce equal streams.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// weights of each gesture kind, in Kind order.
var weights = [...]int{KindDrag: 40, KindClick: 20, KindArrow: 25, KindUndo: 10, KindCancel: 5}

func (g *Generator) kind() Kind {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := g.rng.IntN(total)
	for k, w := range weights {
		if n < w {
			return Kind(k)
		}
		n -= w
	}
	return KindDrag
}

// point returns a pixel position that may lie far outside the board.
func (g *Generator) point() Point {
	span := func(origin, size float64) float64 {
		return origin - overshoot*size + g.rng.Float64()*(1+2*overshoot)*size
	}
	return Point{X: span(Rect.Left, Rect.Width), Y: span(Rect.Top, Rect.Height)}
}

func (g *Generator) path() []Point {
	n := 1 + g.rng.IntN(6)
	p := make([]Point, n)
	for i := range p {
		p[i] = g.point()
	}
	return p
}

// Next returns the next gesture.
func (g *Generator) Next() Gesture {
	k := g.kind()
	gs := Gesture{Kind: k, Marker: g.rng.IntN(64)}
	switch k {
	case KindDrag, KindCancel:
		gs.Path = g.path()
	case KindArrow:
		gs.Start = g.point()
		gs.Path = g.path()
	}
	return gs
}

// Plan returns n gestures.
func (g *Generator) Plan(n int) []Gesture {
	out := make([]Gesture, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// PixelOf returns the client pixel position of a normalized coordinate.
func PixelOf(c model.Coordinate) Point {
	return Point{
		X: Rect.Left + c.X/model.MaxCoord*Rect.Width,
		Y: Rect.Top + c.Y/model.MaxCoord*Rect.Height,
	}
}
