// Package worker persists save jobs taken from the queue.
package worker

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/okian/pitchside/pkg/logger"
	"github.com/okian/pitchside/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount = 4
	defaultMinLatency  = 800 * time.Millisecond
	defaultMaxLatency  = 1200 * time.Millisecond
	defaultRandomSeed  = 42
)

// Job is what workers read off the queue.
type Job = queue.Job

// Writer stores a snapshot as the next tactic version of a match.
type Writer interface {
	SaveTactic(ctx context.Context, matchID string, snap model.Snapshot) (model.Tactic, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes save jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	minLatency time.Duration
	maxLatency time.Duration
	rng        *rand.Rand

	processed *atomic.Int64
	active    *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

func defaults() settings {
	return settings{
		name:       "worker",
		logger:     logger.Nop(),
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		seed:       defaultRandomSeed,
	}
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	return newWorker(q, w, s, &atomic.Int64{}, &atomic.Int64{})
}

func newWorker(q Queue, w Writer, s settings, processed, active *atomic.Int64) *InMemoryWorker {
	return &InMemoryWorker{
		queue:      q,
		writer:     w,
		name:       s.name,
		minLatency: s.minLatency,
		maxLatency: s.maxLatency,
		rng:        rand.New(rand.NewSource(s.seed)), //nolint:gosec // jitter only
		processed:  processed,
		active:     active,
		done:       make(chan struct{}),
		logger:     s.logger.Named(s.name),
	}
}

// Run starts the worker loop. It returns when ctx ends or the queue is
// closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing save job",
					logger.String("job", job.ID),
					logger.String("match", job.MatchID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown waits for Run to return or ctx to end. Callers stop the worker by
// closing the queue or cancelling the Run context.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: shutdown timed out: %w", ErrStopped, ctx.Err())
	}
}

// Processed returns the number of jobs this worker persisted.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

func (w *InMemoryWorker) latency() time.Duration {
	if w.maxLatency <= w.minLatency {
		return w.minLatency
	}
	return w.minLatency + time.Duration(w.rng.Int63n(int64(w.maxLatency-w.minLatency)))
}

// process simulates the backend round trip, stores the snapshot and resolves
// the job. The job is always resolved.
func (w *InMemoryWorker) process(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	fail := func(err error) error {
		metrics.RecordWorkerError()
		job.Resolve(model.SaveResult{Err: err})
		return err
	}

	if d := w.latency(); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-job.Done:
			timer.Stop()
			metrics.RecordErrorByComponent("worker", "abandoned")
			return fail(fmt.Errorf("job %s: %w", job.ID, ErrJobAbandoned))
		case <-ctx.Done():
			timer.Stop()
			metrics.RecordErrorByComponent("worker", "context_cancelled")
			return fail(fmt.Errorf("job %s: %w", job.ID, ctx.Err()))
		}
	}

	tactic, err := w.writer.SaveTactic(ctx, job.MatchID, job.Snapshot)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "persist_error")
		return fail(fmt.Errorf("persist job %s: %w", job.ID, err))
	}

	w.processed.Add(1)
	job.Resolve(model.SaveResult{Tactic: tactic})
	w.logger.Debug(ctx, "tactic persisted",
		logger.String("job", job.ID),
		logger.String("match", job.MatchID),
		logger.Int("version", tactic.Version),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	active    atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc

	logger logger.Logger
}

// NewPool creates a new worker pool. A count below one uses the default.
func NewPool(workerCount int, q Queue, w Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  s.logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		ws := s
		ws.name = "worker-" + strconv.Itoa(i)
		ws.seed = s.seed + int64(i)
		pool.workers[i] = newWorker(q, w, ws, &pool.processed, &pool.active)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	for _, w := range p.workers {
		go w.Run(runCtx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs persisted by all workers.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Active returns the number of workers currently persisting a job.
func (p *Pool) Active() int64 { return p.active.Load() }

// Shutdown closes the queue and lets workers drain it. If ctx ends first
// the remaining work is cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}

	var timedOut bool
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			break
		}
	}

	cancel()
	if timedOut {
		for _, w := range p.workers {
			<-w.done
		}
		return fmt.Errorf("%w: drain interrupted: %w", ErrStopped, ctx.Err())
	}
	return nil
}
