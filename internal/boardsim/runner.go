package boardsim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/pkg/logger"
)

// Variants driven by the simulator.
const (
	variantTactics = "tactics"
	variantSketch  = "sketch"
)

// maxReportedViolations bounds the violations logged at the end of a run.
const maxReportedViolations = 20

type target struct {
	matchID string
	variant string
}

func (t target) String() string { return t.matchID + "/" + t.variant }

// Run executes a complete simulation and returns its statistics. It fails
// with ErrViolations when any board broke an invariant.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Gestures < 0 || config.Workers < 1 || config.SaveWait <= 0 {
		return nil, fmt.Errorf("%w: gestures=%d workers=%d saveWait=%s",
			ErrInvalidConfig, config.Gestures, config.Workers, config.SaveWait)
	}
	log := logger.Get().Named("boardsim")
	stats := &Stats{StartTime: time.Now()}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	log.Info(ctx, "starting board simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("gestures", config.Gestures),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Any("seed", seed),
		logger.Bool("sketch", config.Sketch),
	)

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, err
	}

	// Step 2: Pick the boards to drive
	targets, err := pickTargets(ctx, client, config)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoBoards
	}

	// Step 3: Drive boards concurrently, one goroutine per board at a time
	work := make(chan int)
	results := make([]*Stats, len(targets))
	var wg sync.WaitGroup
	for range min(config.Workers, len(targets)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				d := &driver{
					client: client,
					target: targets[i],
					gen:    NewGenerator(seed + uint64(i)),
					config: config,
					log:    log,
				}
				results[i] = d.run(ctx)
			}
		}()
	}
	for i := range targets {
		select {
		case work <- i:
		case <-ctx.Done():
		}
	}
	close(work)
	wg.Wait()

	for _, r := range results {
		if r != nil {
			stats.add(r)
		}
	}
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("simulation interrupted: %w", err)
	}
	if len(stats.Violations) > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, len(stats.Violations))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func pickTargets(ctx context.Context, client *Client, config *Config) ([]target, error) {
	ids := config.Matches
	if len(ids) == 0 {
		matches, err := client.Matches(ctx)
		if err != nil {
			return nil, fmt.Errorf("list matches: %w", err)
		}
		for _, m := range matches {
			if !m.IsClosed {
				ids = append(ids, m.ID)
			}
		}
	}
	out := make([]target, 0, 2*len(ids))
	for _, id := range ids {
		out = append(out, target{matchID: id, variant: variantTactics})
		if config.Sketch {
			out = append(out, target{matchID: id, variant: variantSketch})
		}
	}
	return out, nil
}

// driver plays a gesture plan against one board.
type driver struct {
	client *Client
	target target
	gen    *Generator
	config *Config
	log    logger.Logger
	stats  Stats
}

func (d *driver) run(ctx context.Context) *Stats {
	d.stats.Boards = 1
	name := d.target.String()

	view, err := d.client.View(ctx, d.target.matchID, d.target.variant)
	if err != nil {
		d.fail(ctx, 0, err)
		return &d.stats
	}
	if view.ReadOnly {
		d.log.Warn(ctx, "skipping read-only board", logger.String("board", name))
		return &d.stats
	}
	d.stats.Violations = append(d.stats.Violations, CheckView(name, 0, view)...)

	for i, g := range d.gen.Plan(d.config.Gestures) {
		if ctx.Err() != nil {
			break
		}
		n := i + 1
		next, err := d.play(ctx, n, g, view)
		if err != nil {
			d.fail(ctx, n, err)
			continue
		}
		d.stats.Gestures++
		d.stats.Violations = append(d.stats.Violations, CheckView(name, n, next)...)
		view = next
	}

	d.save(ctx)
	return &d.stats
}

func (d *driver) fail(ctx context.Context, gesture int, err error) {
	d.stats.Failures++
	d.log.Warn(ctx, "gesture failed",
		logger.String("board", d.target.String()),
		logger.Int("gesture", gesture),
		logger.Error(err),
	)
}

func event(p Point, targetID string) board.PointerEvent {
	return board.PointerEvent{X: p.X, Y: p.Y, Rect: Rect, Target: targetID}
}

// play performs g on the board and returns the resulting view.
func (d *driver) play(ctx context.Context, n int, g Gesture, before View) (View, error) {
	c, id, variant := d.client, d.target.matchID, d.target.variant
	if d.config.Verbose {
		d.log.Debug(ctx, "gesture", logger.String("board", d.target.String()), logger.Int("n", n), logger.String("kind", g.Kind.String()))
	}

	switch g.Kind {
	case KindUndo:
		d.stats.Undos++
		if err := c.Undo(ctx, id, variant); err != nil {
			return View{}, err
		}
		return c.View(ctx, id, variant)

	case KindArrow:
		d.stats.Arrows++
		if err := c.SetTool(ctx, id, variant, board.ToolArrow); err != nil {
			return View{}, err
		}
		if _, err := c.Pointer(ctx, id, variant, "down", event(g.Start, "")); err != nil {
			return View{}, err
		}
		for _, p := range g.Path {
			if _, err := c.Pointer(ctx, id, variant, "move", event(p, "")); err != nil {
				return View{}, err
			}
		}
		if _, err := c.Pointer(ctx, id, variant, "up", event(g.Path[len(g.Path)-1], "")); err != nil {
			return View{}, err
		}
		if err := c.SetTool(ctx, id, variant, board.ToolMove); err != nil {
			return View{}, err
		}
		return c.View(ctx, id, variant)
	}

	if len(before.Markers) == 0 {
		return before, nil
	}
	m := before.Markers[g.Marker%len(before.Markers)]
	press := PixelOf(m.Position)
	if _, err := c.Pointer(ctx, id, variant, "down", event(press, m.ID)); err != nil {
		return View{}, err
	}

	if g.Kind == KindClick {
		d.stats.Clicks++
		res, err := c.Pointer(ctx, id, variant, "up", event(press, ""))
		if err != nil {
			return View{}, err
		}
		if res.Selection == nil || res.Selection.MarkerID != m.ID {
			return View{}, fmt.Errorf("%w: click on %s produced no selection", ErrUnexpected, m.ID)
		}
		d.stats.Selections++
		return c.View(ctx, id, variant)
	}

	crossed := false
	for _, p := range g.Path {
		if _, err := c.Pointer(ctx, id, variant, "move", event(p, "")); err != nil {
			return View{}, err
		}
		if math.Abs(p.X-press.X) > board.DefaultDragThreshold || math.Abs(p.Y-press.Y) > board.DefaultDragThreshold {
			crossed = true
		}
	}
	phase := "up"
	if g.Kind == KindCancel {
		d.stats.Cancels++
		phase = "cancel"
	} else {
		d.stats.Drags++
	}
	if _, err := c.Pointer(ctx, id, variant, phase, event(g.Path[len(g.Path)-1], "")); err != nil {
		return View{}, err
	}
	after, err := c.View(ctx, id, variant)
	if err != nil {
		return View{}, err
	}
	if crossed {
		want := ExpectedDrop(m.Side, g.Path[len(g.Path)-1])
		for _, got := range after.Markers {
			if got.ID == m.ID {
				d.stats.Violations = append(d.stats.Violations, CheckDrop(d.target.String(), n, got, want)...)
			}
		}
	}
	return after, nil
}

// save stores the board and replays the same idempotency key, which must be
// answered as a duplicate.
func (d *driver) save(ctx context.Context) {
	key := uuid.NewString()
	id, variant := d.target.matchID, d.target.variant

	out, err := d.client.Save(ctx, id, variant, key, d.config.SaveWait)
	if err != nil {
		d.fail(ctx, -1, fmt.Errorf("save: %w", err))
		return
	}
	if out.Status == "saved" {
		d.stats.Saves++
	}

	replay, err := d.client.Save(ctx, id, variant, key, d.config.SaveWait)
	if err != nil {
		d.fail(ctx, -1, fmt.Errorf("replay save: %w", err))
		return
	}
	if replay.Status != "duplicate" {
		d.fail(ctx, -1, errors.New("replayed idempotency key was saved again"))
		return
	}
	d.stats.Duplicates++
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var gesturesPerSecond float64
	if stats.Duration > 0 {
		gesturesPerSecond = float64(stats.Gestures) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("boards", stats.Boards),
		logger.Int("gestures", stats.Gestures),
		logger.Int("drags", stats.Drags),
		logger.Int("clicks", stats.Clicks),
		logger.Int("arrows", stats.Arrows),
		logger.Int("undos", stats.Undos),
		logger.Int("cancels", stats.Cancels),
		logger.Int("selections", stats.Selections),
		logger.Int("saves", stats.Saves),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failures", stats.Failures),
		logger.Int("violations", len(stats.Violations)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("gesturesPerSecond", gesturesPerSecond),
	)
	for i, v := range stats.Violations {
		if i == maxReportedViolations {
			log.Error(ctx, "more violations omitted", logger.Int("omitted", len(stats.Violations)-i))
			break
		}
		log.Error(ctx, "invariant violation", logger.String("violation", v.String()))
	}
}
