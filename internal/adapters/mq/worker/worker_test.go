package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/pitchside/internal/adapters/mq/queue"
	"github.com/okian/pitchside/internal/adapters/mq/worker"
	"github.com/okian/pitchside/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockWriter struct {
	mu       sync.Mutex
	versions map[string]int
	fail     map[string]error
}

func newMockWriter() *mockWriter {
	return &mockWriter{versions: make(map[string]int), fail: make(map[string]error)}
}

func (m *mockWriter) SaveTactic(_ context.Context, matchID string, snap model.Snapshot) (model.Tactic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[matchID]; ok {
		return model.Tactic{}, err
	}
	m.versions[matchID]++
	return model.Tactic{MatchID: matchID, Version: m.versions[matchID], Snapshot: snap}, nil
}

func (m *mockWriter) version(matchID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[matchID]
}

func newJob(id, matchID string) queue.Job {
	return queue.Job{ID: id, MatchID: matchID, Result: make(chan model.SaveResult, 1)}
}

func await(t *testing.T, j queue.Job) model.SaveResult {
	t.Helper()
	select {
	case res := <-j.Result:
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("job %s was not resolved", j.ID)
		return model.SaveResult{}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker without simulated latency", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		writer := newMockWriter()
		w := worker.NewInMemoryWorker(q, writer, worker.WithName("test-worker"), worker.WithLatencyRange(0, 0))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a save job is queued", func() {
			j := newJob("j1", "1")
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
			res := await(t, j)

			convey.Convey("Then the tactic is persisted and returned", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Tactic.Version, convey.ShouldEqual, 1)
				convey.So(res.Tactic.MatchID, convey.ShouldEqual, "1")
				convey.So(w.Processed(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the writer fails", func() {
			boom := errors.New("disk full")
			writer.fail["2"] = boom
			j := newJob("j2", "2")
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
			res := await(t, j)

			convey.Convey("Then the job resolves with the wrapped error", func() {
				convey.So(errors.Is(res.Err, boom), convey.ShouldBeTrue)
				convey.So(w.Processed(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()
			shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()

			convey.Convey("Then the worker stops", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Reset(func() {
			_ = q.Close()
			cancel()
		})
	})
}

func TestWorkerAbandonedJob(t *testing.T) {
	convey.Convey("Given a worker with a long simulated latency", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockWriter(), worker.WithLatencyRange(time.Minute, time.Minute))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When the requester gives up", func() {
			done := make(chan struct{})
			j := newJob("slow", "1")
			j.Done = done
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
			close(done)
			res := await(t, j)

			convey.Convey("Then the job is abandoned without being written", func() {
				convey.So(errors.Is(res.Err, worker.ErrJobAbandoned), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the run context is cancelled mid-flight", func() {
			j := newJob("slow", "1")
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
			time.Sleep(20 * time.Millisecond)
			cancel()
			res := await(t, j)

			convey.Convey("Then the job resolves with the cancellation", func() {
				convey.So(errors.Is(res.Err, context.Canceled), convey.ShouldBeTrue)
			})
		})

		convey.Reset(func() {
			cancel()
			_ = q.Close()
			_ = w.Shutdown(context.Background())
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		writer := newMockWriter()
		pool := worker.NewPool(3, q, writer, worker.WithLatencyRange(time.Millisecond, 5*time.Millisecond))
		convey.So(pool.Size(), convey.ShouldEqual, 3)
		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When saves for several matches are queued", func() {
			var jobs []queue.Job
			for i := 0; i < 30; i++ {
				j := newJob(fmt.Sprintf("j%d", i), fmt.Sprintf("%d", i%3))
				convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
				jobs = append(jobs, j)
			}
			for _, j := range jobs {
				convey.So(await(t, j).Err, convey.ShouldBeNil)
			}

			convey.Convey("Then every job is persisted once", func() {
				convey.So(pool.Processed(), convey.ShouldEqual, 30)
				convey.So(writer.version("0")+writer.version("1")+writer.version("2"), convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When shutting down with queued work", func() {
			j := newJob("last", "1")
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then the queue is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(await(t, j).Err, convey.ShouldBeNil)
				convey.So(errors.Is(q.Enqueue(ctx, newJob("x", "1")), queue.ErrQueueClosed), convey.ShouldBeTrue)
			})
		})

		convey.Reset(func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = pool.Shutdown(shutdownCtx)
		})
	})

	convey.Convey("Given a pool that was never started", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, newMockWriter())

		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
		convey.So(q.IsClosed(), convey.ShouldBeTrue)
	})
}
