// Package board implements the tactical board interaction state machine.
//
// A Board owns the live marker positions and arrow annotations of one pitch
// and interprets pointer gestures. A press on a marker with the move tool is
// a click until the pointer travels past the drag threshold; a press with the
// arrow tool draws an arrow that is only kept if it is long enough. The board
// is driven headless: callers feed PointerEvents carrying client pixel
// coordinates together with the board's bounding box.
package board

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// Default gesture thresholds.
const (
	DefaultDragThreshold  = 5.0 // pixels, either axis
	DefaultArrowMinLength = 2.0 // normalized units
)

// Tool selects what a pointer-down may start.
type Tool string

// Tools.
const (
	ToolMove  Tool = "move"
	ToolArrow Tool = "arrow"
)

// ParseTool validates a tool name.
func ParseTool(s string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(s))); t {
	case ToolMove, ToolArrow:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTool, s)
}

// State is the gesture state of the board.
type State int

// Gesture states.
const (
	Idle State = iota
	DraggingMarker
	DrawingArrow
)

func (s State) String() string {
	switch s {
	case DraggingMarker:
		return "dragging_marker"
	case DrawingArrow:
		return "drawing_arrow"
	default:
		return "idle"
	}
}

// Rect is the board's bounding box in client pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Normalize projects a client pixel position onto the box as percentages,
// clamped to [0,100]. A degenerate box maps everything to the origin.
func (r Rect) Normalize(x, y float64) model.Coordinate {
	if r.Width <= 0 || r.Height <= 0 {
		return model.Coordinate{}
	}
	c := model.Coordinate{
		X: (x - r.Left) / r.Width * model.MaxCoord,
		Y: (y - r.Top) / r.Height * model.MaxCoord,
	}
	return c.Clamp()
}

// PointerEvent is one pointer sample. Target is the id of the marker under
// the pointer on pointer-down, empty when the press lands on the pitch.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rect   Rect    `json:"rect"`
	Target string  `json:"target,omitempty"`
}

// SelectionHandler receives click-without-drag selections.
type SelectionHandler func(model.Selection)

// Persister receives the board state on save.
type Persister interface {
	Persist(ctx context.Context, snap model.Snapshot) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, snap model.Snapshot) error

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, snap model.Snapshot) error { return f(ctx, snap) }

// Board is the tactical board state machine. It is safe for concurrent use;
// gestures are serialized so only one is active at a time.
type Board struct {
	mu sync.Mutex

	name           string
	freeForm       bool
	readOnly       bool
	tool           Tool
	dragThreshold  float64
	arrowMinLength float64
	initHome       formation.Formation
	initAway       formation.Formation
	formations     map[model.Side]formation.Formation

	markers []model.Marker
	arrows  []model.Arrow
	current *model.Arrow

	state      State
	dragID     string
	originX    float64
	originY    float64
	isDragging bool

	elementSeq int

	saving bool
	notice *Notice

	onSelect  SelectionHandler
	persister Persister
	newID     func() string
	now       func() time.Time
	logger    logger.Logger
}

// New creates a board. Unless WithFreeForm is given it is populated from the
// home and away formations (4-4-2 and 4-3-3 by default).
func New(opts ...Option) (*Board, error) {
	b := &Board{
		name:           "board",
		tool:           ToolMove,
		dragThreshold:  DefaultDragThreshold,
		arrowMinLength: DefaultArrowMinLength,
		initHome:       formation.F442,
		initAway:       formation.F433,
		formations:     make(map[model.Side]formation.Formation, 2),
		newID:          func() string { return "arrow-" + uuid.NewString() },
		now:            time.Now,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.persister = orDefaultPersister(b.persister, b.logger)

	if b.freeForm {
		b.markers = initialElements()
		b.elementSeq = len(b.markers)
		return b, nil
	}

	for _, side := range []model.Side{model.Home, model.Away} {
		f := b.initHome
		if side == model.Away {
			f = b.initAway
		}
		if err := b.applyFormation(side, f); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// SetFormation replaces every marker of side with the layout of f. Markers of
// the other side are left untouched; drag offsets of side are discarded.
func (b *Board) SetFormation(side model.Side, f formation.Formation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.freeForm {
		return ErrFreeForm
	}
	if b.readOnly {
		return ErrReadOnly
	}
	if b.state == DraggingMarker {
		if s, _ := model.SideFromID(b.dragID); s == side {
			b.resetGesture()
		}
	}
	if err := b.applyFormation(side, f); err != nil {
		return err
	}
	metrics.RecordFormationChange(string(side), string(f))
	b.logger.Debug(context.Background(), "formation applied",
		logger.String("board", b.name),
		logger.String("side", string(side)),
		logger.String("formation", string(f)),
	)
	return nil
}

func (b *Board) applyFormation(side model.Side, f formation.Formation) error {
	fresh, err := formation.Markers(f, side)
	if err != nil {
		return err
	}
	kept := make([]model.Marker, 0, len(b.markers))
	for _, m := range b.markers {
		if m.Side != side {
			kept = append(kept, m)
		}
	}
	// home markers first, then away
	if side == model.Home {
		b.markers = append(fresh, kept...)
	} else {
		b.markers = append(kept, fresh...)
	}
	b.formations[side] = f
	return nil
}

// Formation returns the active formation of side.
func (b *Board) Formation(side model.Side) (formation.Formation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.formations[side]
	return f, ok
}

// SetReadOnly gates all gesture transitions. Entering read-only aborts any
// gesture in progress without emitting events.
func (b *Board) SetReadOnly(readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = readOnly
	if readOnly {
		b.resetGesture()
	}
}

// ReadOnly reports whether the board is read-only.
func (b *Board) ReadOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readOnly
}

// SetActiveTool selects the tool used by the next pointer-down.
func (b *Board) SetActiveTool(t Tool) error {
	if t != ToolMove && t != ToolArrow {
		return fmt.Errorf("%w: %q", ErrInvalidTool, string(t))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tool = t
	return nil
}

// ActiveTool returns the selected tool.
func (b *Board) ActiveTool() Tool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tool
}

// State returns the current gesture state.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// PointerDown starts a gesture. With the move tool it only takes effect on a
// marker; with the arrow tool it anchors a new arrow at the pointer.
func (b *Board) PointerDown(ev PointerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly || b.state != Idle {
		return
	}
	switch b.tool {
	case ToolMove:
		if ev.Target == "" || b.indexOf(ev.Target) < 0 {
			return
		}
		b.state = DraggingMarker
		b.dragID = ev.Target
		b.originX, b.originY = ev.X, ev.Y
		b.isDragging = false
	case ToolArrow:
		start := ev.Rect.Normalize(ev.X, ev.Y)
		b.current = &model.Arrow{ID: b.newID(), Start: start, End: start}
		b.state = DrawingArrow
	}
	metrics.RecordGesture(b.state.String())
}

// PointerMove advances the active gesture.
func (b *Board) PointerMove(ev PointerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return
	}
	switch b.state {
	case DraggingMarker:
		if !b.isDragging {
			dx := math.Abs(ev.X - b.originX)
			dy := math.Abs(ev.Y - b.originY)
			if dx > b.dragThreshold || dy > b.dragThreshold {
				b.isDragging = true
			}
		}
		if !b.isDragging {
			return
		}
		i := b.indexOf(b.dragID)
		if i < 0 {
			b.resetGesture()
			return
		}
		m := &b.markers[i]
		m.Position = m.Side.Confine(ev.Rect.Normalize(ev.X, ev.Y))
	case DrawingArrow:
		b.current.End = ev.Rect.Normalize(ev.X, ev.Y)
	}
}

// PointerUp finishes the active gesture. A press on a marker that never
// crossed the drag threshold is a selection: it is returned and passed to
// the SelectionHandler. A drawn arrow is committed only if it is longer than
// the minimum length.
func (b *Board) PointerUp(_ PointerEvent) (model.Selection, bool) {
	b.mu.Lock()

	if b.readOnly {
		b.mu.Unlock()
		return model.Selection{}, false
	}

	var (
		sel      model.Selection
		selected bool
	)
	switch b.state {
	case DraggingMarker:
		if !b.isDragging {
			if i := b.indexOf(b.dragID); i >= 0 {
				m := b.markers[i]
				side := m.Side
				if side == "" {
					side, _ = model.SideFromID(m.ID)
				}
				sel = model.Selection{MarkerID: m.ID, Label: m.Label, Side: side, At: b.now()}
				selected = true
			}
		}
	case DrawingArrow:
		if b.current.Length() > b.arrowMinLength {
			b.arrows = append(b.arrows, *b.current)
			metrics.RecordArrow("committed")
		} else {
			metrics.RecordArrow("discarded")
		}
	}
	b.resetGesture()
	handler := b.onSelect
	b.mu.Unlock()

	if selected {
		metrics.RecordSelection(string(sel.Side))
		if handler != nil {
			handler(sel)
		}
	}
	return sel, selected
}

// Cancel aborts the active gesture. A dragged marker keeps its last position;
// an in-progress arrow is discarded.
func (b *Board) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetGesture()
}

func (b *Board) resetGesture() {
	b.state = Idle
	b.dragID = ""
	b.isDragging = false
	b.current = nil
}

// Undo removes the most recently committed arrow. It reports whether an
// arrow was removed; undo on an empty list is a no-op.
func (b *Board) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readOnly || len(b.arrows) == 0 {
		return false
	}
	b.arrows = b.arrows[:len(b.arrows)-1]
	return true
}

// CanUndo reports whether Undo would remove an arrow.
func (b *Board) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.readOnly && len(b.arrows) > 0
}

// Clear removes every committed arrow.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readOnly {
		return
	}
	b.arrows = nil
}

// Markers returns a copy of the markers.
func (b *Board) Markers() []model.Marker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Marker(nil), b.markers...)
}

// Marker returns the marker with id.
func (b *Board) Marker(id string) (model.Marker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOf(id); i >= 0 {
		return b.markers[i], true
	}
	return model.Marker{}, false
}

// Arrows returns a copy of the committed arrows.
func (b *Board) Arrows() []model.Arrow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Arrow(nil), b.arrows...)
}

// CurrentArrow returns the arrow being drawn, if any.
func (b *Board) CurrentArrow() (model.Arrow, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return model.Arrow{}, false
	}
	return *b.current, true
}

// Snapshot returns the committed board state.
func (b *Board) Snapshot() model.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Board) snapshot() model.Snapshot {
	snap := model.Snapshot{
		Markers: append([]model.Marker{}, b.markers...),
		Arrows:  append([]model.Arrow{}, b.arrows...),
	}
	if !b.freeForm {
		snap.HomeFormation = string(b.formations[model.Home])
		snap.AwayFormation = string(b.formations[model.Away])
	}
	return snap
}

// FreeForm reports whether the board is a free-form canvas.
func (b *Board) FreeForm() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freeForm
}

func (b *Board) indexOf(id string) int {
	for i := range b.markers {
		if b.markers[i].ID == id {
			return i
		}
	}
	return -1
}

// Free-form element colors.
const (
	playerColor   = "hsl(340, 80%, 55%)"
	coneColor     = "hsl(45, 100%, 50%)"
	ballColor     = "white"
	opponentColor = formation.AwayColor
)

func initialElements() []model.Marker {
	el := func(id string, x, y float64, color string) model.Marker {
		return model.Marker{
			ID:       id,
			Label:    strings.ToUpper(id),
			Position: model.Coordinate{X: x, Y: y},
			Kind:     model.KindPlayer,
			Color:    color,
		}
	}
	return []model.Marker{
		el("p1", 50, 85, formation.HomeColor),
		el("p2", 25, 65, formation.HomeColor),
		el("p3", 75, 65, formation.HomeColor),
		el("p4", 50, 45, formation.HomeColor),
		el("o1", 50, 15, opponentColor),
	}
}

// AddElement places a new element of kind at the centre spot of a free-form
// board and returns it.
func (b *Board) AddElement(kind model.Kind) (model.Marker, error) {
	if !kind.Valid() {
		return model.Marker{}, fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.freeForm {
		return model.Marker{}, ErrNotFreeForm
	}
	if b.readOnly {
		return model.Marker{}, ErrReadOnly
	}

	b.elementSeq++
	id := string(kind)[:1] + strconv.Itoa(b.elementSeq)
	color := playerColor
	switch kind {
	case model.KindCone:
		color = coneColor
	case model.KindBall:
		color = ballColor
	}
	m := model.Marker{
		ID:       id,
		Label:    strings.ToUpper(id),
		Position: model.Coordinate{X: model.Halfway, Y: model.Halfway},
		Kind:     kind,
		Color:    color,
	}
	b.markers = append(b.markers, m)
	return m, nil
}

// RemoveElement deletes one element of a free-form board. Removing an
// unknown id is a no-op that reports false.
func (b *Board) RemoveElement(id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.freeForm {
		return false, ErrNotFreeForm
	}
	if b.readOnly {
		return false, ErrReadOnly
	}
	i := b.indexOf(id)
	if i < 0 {
		return false, nil
	}
	if b.dragID == id {
		b.resetGesture()
	}
	b.markers = append(b.markers[:i], b.markers[i+1:]...)
	return true, nil
}

// ClearElements removes every element of a free-form board.
func (b *Board) ClearElements() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.freeForm {
		return ErrNotFreeForm
	}
	if b.readOnly {
		return ErrReadOnly
	}
	if b.state == DraggingMarker {
		b.resetGesture()
	}
	b.markers = nil
	return nil
}
