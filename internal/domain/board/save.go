package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// NoticeLevel classifies a user-facing notification.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a dismissible notification produced by a save.
type Notice struct {
	Level       NoticeLevel `json:"level"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	At          time.Time   `json:"at"`
}

// SaveTask is an in-flight save. It can be awaited and cancelled.
type SaveTask struct {
	cancel context.CancelFunc
	done   chan struct{}

	once sync.Once
	err  error
}

func newSaveTask(cancel context.CancelFunc) *SaveTask {
	return &SaveTask{cancel: cancel, done: make(chan struct{})}
}

func (t *SaveTask) finish(err error) {
	t.once.Do(func() {
		t.err = err
		t.cancel()
		close(t.done)
	})
}

// Done is closed when the save has resolved.
func (t *SaveTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the save resolves or ctx ends.
func (t *SaveTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the save result once Done is closed, nil before.
func (t *SaveTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel aborts the save. The persister observes a cancelled context.
func (t *SaveTask) Cancel() { t.cancel() }

// Save hands the current snapshot to the persister without blocking gesture
// handling. Only one save may be in flight; a second call returns
// ErrSaveInFlight. A read-only board cannot be saved. The board state is never
// rolled back; a failed save only posts an error notice.
func (b *Board) Save(ctx context.Context) (*SaveTask, error) {
	b.mu.Lock()
	if b.readOnly {
		b.mu.Unlock()
		return nil, ErrReadOnly
	}
	if b.saving {
		b.mu.Unlock()
		metrics.RecordSave("in_flight")
		return nil, ErrSaveInFlight
	}
	b.saving = true
	snap := b.snapshot()
	persister := b.persister
	b.mu.Unlock()

	saveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := newSaveTask(cancel)

	go func() {
		start := time.Now()
		err := persister.Persist(saveCtx, snap)
		metrics.RecordSaveLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
		b.finishSave(ctx, err)
		task.finish(err)
	}()
	return task, nil
}

func (b *Board) finishSave(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.saving = false
	if err != nil {
		metrics.RecordSave("failed")
		b.notice = &Notice{
			Level:       NoticeError,
			Title:       "Save failed",
			Description: "The tactic could not be saved. Please try again.",
			At:          b.now(),
		}
		b.logger.Warn(ctx, "tactic save failed", logger.String("board", b.name), logger.Error(err))
		return
	}
	metrics.RecordSave("ok")
	b.notice = &Notice{
		Level:       NoticeInfo,
		Title:       "Tactic saved",
		Description: "Positions and drawings have been saved.",
		At:          b.now(),
	}
	b.logger.Info(ctx, "tactic saved", logger.String("board", b.name))
}

// Saving reports whether a save is in flight (the busy indicator).
func (b *Board) Saving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saving
}

// Notification returns the pending notice, if any.
func (b *Board) Notification() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notice == nil {
		return Notice{}, false
	}
	return *b.notice, true
}

// DismissNotification clears the pending notice.
func (b *Board) DismissNotification() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notice = nil
}

type logPersister struct {
	logger logger.Logger
}

func (p logPersister) Persist(ctx context.Context, snap model.Snapshot) error {
	p.logger.Info(ctx, "saving tactic",
		logger.Int("markers", len(snap.Markers)),
		logger.Int("arrows", len(snap.Arrows)),
	)
	return nil
}

func orDefaultPersister(p Persister, l logger.Logger) Persister {
	if p != nil {
		return p
	}
	return logPersister{logger: l}
}
