// Package service wires board sessions, the save pipeline and the match store
// behind the operations used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/adapters/mq/worker"
	"github.com/okian/pitchside/internal/adapters/repository"
	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/dedupe"
	"github.com/okian/pitchside/internal/domain/formation"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize    = 1024
	defaultDedupeSize   = 10_000
	defaultSaveTimeout  = 10 * time.Second
	defaultSaveMin      = 800 * time.Millisecond
	defaultSaveMax      = 1200 * time.Millisecond
	selectionLogLimit   = 200
	poolShutdownTimeout = 30 * time.Second
)

// Variant selects which board of a match is addressed.
type Variant string

// Board variants. Every match has a formation board and a free-form sketch.
const (
	VariantTactics Variant = "tactics"
	VariantSketch  Variant = "sketch"
)

// ParseVariant validates a variant name; empty means VariantTactics.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VariantTactics, nil
	case VariantTactics, VariantSketch:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVariant, s)
}

// Ref addresses one board.
type Ref struct {
	MatchID string
	Variant Variant
}

func (r Ref) key() string { return r.MatchID + "/" + string(r.Variant) }

// Phase is the pointer event kind forwarded to a board.
type Phase string

// Pointer phases.
const (
	PhaseDown   Phase = "down"
	PhaseMove   Phase = "move"
	PhaseUp     Phase = "up"
	PhaseCancel Phase = "cancel"
)

// PointerResult reports the board state after a pointer event.
type PointerResult struct {
	State     string           `json:"state"`
	Selection *model.Selection `json:"selection,omitempty"`
}

// SaveStatus tells the caller how a save request was handled.
type SaveStatus string

// Save statuses.
const (
	SaveCompleted SaveStatus = "saved"
	SavePending   SaveStatus = "saving"
	SaveDuplicate SaveStatus = "duplicate"
)

// SaveOutcome is the result of a save request.
type SaveOutcome struct {
	Status SaveStatus    `json:"status"`
	Tactic *model.Tactic `json:"tactic,omitempty"`
}

// View is a serializable picture of a board.
type View struct {
	MatchID       string         `json:"match_id"`
	Variant       Variant        `json:"variant"`
	ReadOnly      bool           `json:"read_only"`
	Tool          board.Tool     `json:"tool"`
	State         string         `json:"state"`
	HomeFormation string         `json:"home_formation,omitempty"`
	AwayFormation string         `json:"away_formation,omitempty"`
	Markers       []model.Marker `json:"markers"`
	Arrows        []model.Arrow  `json:"arrows"`
	CurrentArrow  *model.Arrow   `json:"current_arrow,omitempty"`
	CanUndo       bool           `json:"can_undo"`
	Saving        bool           `json:"saving"`
	Notice        *board.Notice  `json:"notice,omitempty"`
}

type session struct {
	match model.Match
	board *board.Board

	mu        sync.Mutex
	lastSaved *model.Tactic
}

func (s *session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.IsClosed
}

func (s *session) setMatch(m model.Match) {
	s.mu.Lock()
	s.match = m
	s.mu.Unlock()
}

func (s *session) saved() (model.Tactic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSaved == nil {
		return model.Tactic{}, false
	}
	return *s.lastSaved, true
}

// Service implements the API dependencies for the tactical board.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	saveQueue  *queue.InMemoryQueue
	workerPool *worker.Pool
	group      singleflight.Group

	sessionsMu sync.RWMutex
	sessions   map[string]*session
	selections map[string][]model.Selection

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	saveMinLatency time.Duration
	saveMaxLatency time.Duration
	saveTimeout    time.Duration
	dragThreshold  float64
	arrowMinLength float64
	homeFormation  formation.Formation
	awayFormation  formation.Formation

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		saveMinLatency: defaultSaveMin,
		saveMaxLatency: defaultSaveMax,
		saveTimeout:    defaultSaveTimeout,
		dragThreshold:  board.DefaultDragThreshold,
		arrowMinLength: board.DefaultArrowMinLength,
		homeFormation:  formation.F442,
		awayFormation:  formation.F433,
		sessions:       make(map[string]*session),
		selections:     make(map[string][]model.Selection),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewInMemoryStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start initializes and starts the save pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting board service...")

	s.saveQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.saveQueue, s.store,
		worker.WithLatencyRange(s.saveMinLatency, s.saveMaxLatency),
		worker.WithLogger(s.logger),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "board service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending saves and shuts the pipeline down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping board service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "board service stopped")
}

// Formations lists the supported formations.
func (s *Service) Formations() []formation.Formation {
	return formation.All()
}

// Layout returns the markers of f for side.
func (s *Service) Layout(f formation.Formation, side model.Side) ([]model.Marker, error) {
	return formation.Markers(f, side)
}

// Matches lists the matches in the store.
func (s *Service) Matches(ctx context.Context) ([]model.Match, error) {
	return s.store.Matches(ctx)
}

// Match returns one match.
func (s *Service) Match(ctx context.Context, id string) (model.Match, error) {
	return s.store.Match(ctx, id)
}

// board returns the session of ref, creating it on first use. A closed match
// yields a read-only board.
func (s *Service) board(ctx context.Context, ref Ref) (*session, error) {
	key := ref.key()
	s.sessionsMu.RLock()
	sess, ok := s.sessions[key]
	s.sessionsMu.RUnlock()
	if ok {
		return sess, nil
	}

	v, err, _ := s.group.Do("board:"+key, func() (any, error) {
		s.sessionsMu.RLock()
		existing, ok := s.sessions[key]
		s.sessionsMu.RUnlock()
		if ok {
			return existing, nil
		}

		match, err := s.store.Match(ctx, ref.MatchID)
		if err != nil {
			return nil, err
		}
		created := &session{match: match}
		opts := []board.Option{
			board.WithName(key),
			board.WithLogger(s.logger.Named("board")),
			board.WithDragThreshold(s.dragThreshold),
			board.WithArrowMinLength(s.arrowMinLength),
			board.WithReadOnly(match.IsClosed),
			board.WithSelectionHandler(s.recordSelection(ref.MatchID)),
			board.WithPersister(s.persister(ref, created)),
		}
		if ref.Variant == VariantSketch {
			opts = append(opts, board.WithFreeForm())
		} else {
			opts = append(opts, board.WithFormations(s.homeFormation, s.awayFormation))
		}
		b, err := board.New(opts...)
		if err != nil {
			return nil, err
		}
		created.board = b

		s.sessionsMu.Lock()
		// The match may have been closed or reopened while the board was built.
		if current, err := s.store.Match(ctx, ref.MatchID); err == nil && current.IsClosed != match.IsClosed {
			created.match = current
			b.SetReadOnly(current.IsClosed)
		}
		s.sessions[key] = created
		count := len(s.sessions)
		s.sessionsMu.Unlock()

		metrics.UpdateBoardSessions(count)
		s.logger.Debug(ctx, "board session opened",
			logger.String("board", key),
			logger.Bool("readOnly", match.IsClosed),
		)
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session), nil
}

func (s *Service) recordSelection(matchID string) board.SelectionHandler {
	return func(sel model.Selection) {
		s.sessionsMu.Lock()
		log := append(s.selections[matchID], sel)
		if len(log) > selectionLogLimit {
			log = append([]model.Selection(nil), log[len(log)-selectionLogLimit:]...)
		}
		s.selections[matchID] = log
		s.sessionsMu.Unlock()
	}
}

// persister hands snapshots of one board to the save queue. Both boards of a
// match append to the same tactic history. The board admits one save at a
// time, so a persister call never overlaps another for the same board.
func (s *Service) persister(ref Ref, sess *session) board.Persister {
	return board.PersisterFunc(func(ctx context.Context, snap model.Snapshot) error {
		t, err := s.persist(ctx, ref.MatchID, snap)
		if err != nil {
			return err
		}
		sess.mu.Lock()
		sess.lastSaved = &t
		sess.mu.Unlock()
		return nil
	})
}

func (s *Service) persist(ctx context.Context, matchID string, snap model.Snapshot) (model.Tactic, error) {
	s.mu.RLock()
	q, started, timeout := s.saveQueue, s.started, s.saveTimeout
	s.mu.RUnlock()
	if !started {
		return model.Tactic{}, ErrNotStarted
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job := model.SaveJob{
		ID:       uuid.NewString(),
		MatchID:  matchID,
		Snapshot: snap,
		Result:   make(chan model.SaveResult, 1),
		Done:     ctx.Done(),
	}
	if err := q.Enqueue(ctx, job); err != nil {
		return model.Tactic{}, fmt.Errorf("enqueue save for match %s: %w", matchID, err)
	}

	select {
	case res := <-job.Result:
		return res.Tactic, res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.Tactic{}, fmt.Errorf("%w after %s", ErrSaveTimeout, timeout)
		}
		return model.Tactic{}, ctx.Err()
	}
}

// View returns the current picture of a board.
func (s *Service) View(ctx context.Context, ref Ref) (View, error) {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return View{}, err
	}
	b := sess.board
	snap := b.Snapshot()
	v := View{
		MatchID:       ref.MatchID,
		Variant:       ref.Variant,
		ReadOnly:      b.ReadOnly(),
		Tool:          b.ActiveTool(),
		State:         b.State().String(),
		HomeFormation: snap.HomeFormation,
		AwayFormation: snap.AwayFormation,
		Markers:       snap.Markers,
		Arrows:        snap.Arrows,
		CanUndo:       b.CanUndo(),
		Saving:        b.Saving(),
	}
	if a, ok := b.CurrentArrow(); ok {
		v.CurrentArrow = &a
	}
	if n, ok := b.Notification(); ok {
		v.Notice = &n
	}
	return v, nil
}

// SetFormation applies f to one side of the formation board.
func (s *Service) SetFormation(ctx context.Context, ref Ref, side model.Side, f formation.Formation) error {
	if !side.Valid() {
		return fmt.Errorf("%w: %q", formation.ErrInvalidSide, string(side))
	}
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	return sess.board.SetFormation(side, f)
}

// SetTool selects the active tool.
func (s *Service) SetTool(ctx context.Context, ref Ref, tool board.Tool) error {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	return sess.board.SetActiveTool(tool)
}

// SetReadOnly toggles read-only mode. Boards of closed matches stay read-only.
func (s *Service) SetReadOnly(ctx context.Context, ref Ref, readOnly bool) error {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	if !readOnly && sess.closed() {
		return ErrMatchClosed
	}
	sess.board.SetReadOnly(readOnly)
	return nil
}

// Pointer forwards one pointer event to a board.
func (s *Service) Pointer(ctx context.Context, ref Ref, phase Phase, ev board.PointerEvent) (PointerResult, error) {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return PointerResult{}, err
	}
	b := sess.board
	var res PointerResult
	switch phase {
	case PhaseDown:
		b.PointerDown(ev)
	case PhaseMove:
		b.PointerMove(ev)
	case PhaseUp:
		if sel, ok := b.PointerUp(ev); ok {
			res.Selection = &sel
		}
	case PhaseCancel:
		b.Cancel()
	default:
		return PointerResult{}, fmt.Errorf("%w: %q", ErrInvalidPhase, string(phase))
	}
	res.State = b.State().String()
	return res, nil
}

// Undo removes the last committed arrow and reports whether one was removed.
func (s *Service) Undo(ctx context.Context, ref Ref) (bool, error) {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return false, err
	}
	return sess.board.Undo(), nil
}

// Clear removes every committed arrow.
func (s *Service) Clear(ctx context.Context, ref Ref) error {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	if sess.board.ReadOnly() {
		return board.ErrReadOnly
	}
	sess.board.Clear()
	return nil
}

// AddElement places a new element on a sketch board.
func (s *Service) AddElement(ctx context.Context, ref Ref, kind model.Kind) (model.Marker, error) {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return model.Marker{}, err
	}
	return sess.board.AddElement(kind)
}

// RemoveElement deletes one element of a sketch board.
func (s *Service) RemoveElement(ctx context.Context, ref Ref, id string) error {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	removed, err := sess.board.RemoveElement(id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("element %q: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ClearElements empties a sketch board.
func (s *Service) ClearElements(ctx context.Context, ref Ref) error {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	return sess.board.ClearElements()
}

// Save persists the board. A non-empty idempotency key that was already used
// returns SaveDuplicate without saving again. The call waits up to wait for
// the save to finish; a save still running after that reports SavePending.
func (s *Service) Save(ctx context.Context, ref Ref, idempotencyKey string, wait time.Duration) (SaveOutcome, error) {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return SaveOutcome{}, err
	}
	if idempotencyKey != "" && s.deduper.SeenAndRecord(ctx, idempotencyKey) {
		metrics.RecordSaveDuplicate()
		s.logger.Debug(ctx, "duplicate save request",
			logger.String("board", ref.key()),
			logger.String("key", idempotencyKey),
		)
		return SaveOutcome{Status: SaveDuplicate}, nil
	}

	task, err := sess.board.Save(ctx)
	if err != nil {
		if idempotencyKey != "" {
			s.deduper.Unrecord(ctx, idempotencyKey)
		}
		return SaveOutcome{}, err
	}
	release := func() {}
	if idempotencyKey != "" {
		// A failed save frees its key for a retry, whether or not anyone
		// is still waiting for it.
		release = sync.OnceFunc(func() {
			s.deduper.Unrecord(context.WithoutCancel(ctx), idempotencyKey)
		})
		go func() {
			<-task.Done()
			if task.Err() != nil {
				release()
			}
		}()
	}
	if wait <= 0 {
		return SaveOutcome{Status: SavePending}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := task.Wait(waitCtx); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return SaveOutcome{Status: SavePending}, nil
		}
		if task.Err() != nil {
			release()
		}
		return SaveOutcome{}, err
	}
	out := SaveOutcome{Status: SaveCompleted}
	if t, ok := sess.saved(); ok {
		out.Tactic = &t
	}
	return out, nil
}

// Tactic returns the latest saved tactic of a match.
func (s *Service) Tactic(ctx context.Context, matchID string) (model.Tactic, error) {
	return s.store.LatestTactic(ctx, matchID)
}

// Tactics returns the retained tactic history of a match, oldest first.
func (s *Service) Tactics(ctx context.Context, matchID string) ([]model.Tactic, error) {
	tactics, err := s.store.Tactics(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if tactics == nil {
		tactics = []model.Tactic{}
	}
	return tactics, nil
}

// SetMatchClosed closes or reopens a match. Closing puts every open board of
// the match into read-only mode; reopening unlocks them.
func (s *Service) SetMatchClosed(ctx context.Context, id string, closed bool) (model.Match, error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	m, err := s.store.Match(ctx, id)
	if err != nil {
		return model.Match{}, err
	}
	m.IsClosed = closed
	if err := s.store.SaveMatch(ctx, m); err != nil {
		return model.Match{}, err
	}
	for _, v := range []Variant{VariantTactics, VariantSketch} {
		sess, ok := s.sessions[Ref{MatchID: id, Variant: v}.key()]
		if !ok {
			continue
		}
		sess.setMatch(m)
		sess.board.SetReadOnly(closed)
	}
	s.logger.Info(ctx, "match status changed",
		logger.String("match", id),
		logger.Bool("closed", closed),
	)
	return m, nil
}

// Selections returns the markers selected on boards of a match, oldest first.
func (s *Service) Selections(ctx context.Context, matchID string) ([]model.Selection, error) {
	if _, err := s.store.Match(ctx, matchID); err != nil {
		return nil, err
	}
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return append([]model.Selection{}, s.selections[matchID]...), nil
}

// DismissNotice clears the pending save notification of a board.
func (s *Service) DismissNotice(ctx context.Context, ref Ref) error {
	sess, err := s.board(ctx, ref)
	if err != nil {
		return err
	}
	sess.board.DismissNotification()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	s.sessionsMu.RLock()
	sessions := len(s.sessions)
	s.sessionsMu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"dedupeKeys":   s.deduper.Size(),
		"boards":       sessions,
		"totalMatches": s.store.Count(ctx),
	}
	if s.started {
		queueLen := s.saveQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["savesPersisted"] = s.workerPool.Processed()
		stats["activeWorkers"] = s.workerPool.Active()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	metrics.UpdateBoardSessions(sessions)
	return stats
}
