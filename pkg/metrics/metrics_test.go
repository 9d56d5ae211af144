package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector is registered under the pitchside namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.saves.WithLabelValues("ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "pitchside_board_"), ShouldBeTrue)
				}
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.saveLatency.Observe(5)

			Convey("Then names and labels follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() != "test_sub_save_latency_milliseconds" {
						continue
					}
					found = true
					m := f.GetMetric()[0]
					So(m.GetLabel()[0].GetName(), ShouldEqual, "env")
					So(len(m.GetHistogram().GetBucket()), ShouldEqual, 3)
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestBoardMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When board interactions are recorded", func() {
			committed := testutil.ToFloat64(globalManager.arrows.WithLabelValues("committed"))
			home := testutil.ToFloat64(globalManager.selections.WithLabelValues("home"))
			changes := testutil.ToFloat64(globalManager.formationChanges.WithLabelValues("away", "5-3-2"))

			RecordArrow("committed")
			RecordArrow("discarded")
			RecordSelection("home")
			RecordFormationChange("away", "5-3-2")
			RecordGesture("drawing_arrow")
			UpdateBoardSessions(3)

			Convey("Then the counters advance", func() {
				So(testutil.ToFloat64(globalManager.arrows.WithLabelValues("committed")), ShouldEqual, committed+1)
				So(testutil.ToFloat64(globalManager.selections.WithLabelValues("home")), ShouldEqual, home+1)
				So(testutil.ToFloat64(globalManager.formationChanges.WithLabelValues("away", "5-3-2")), ShouldEqual, changes+1)
				So(testutil.ToFloat64(globalManager.boardSessions), ShouldEqual, 3)
			})
		})

		Convey("When save outcomes are recorded", func() {
			failed := testutil.ToFloat64(globalManager.saves.WithLabelValues("failed"))
			dup := testutil.ToFloat64(globalManager.savesDuplicate)

			RecordSave("failed")
			RecordSaveDuplicate()
			RecordSaveLatency(420)
			UpdateTacticsStored(7)

			Convey("Then they are visible", func() {
				So(testutil.ToFloat64(globalManager.saves.WithLabelValues("failed")), ShouldEqual, failed+1)
				So(testutil.ToFloat64(globalManager.savesDuplicate), ShouldEqual, dup+1)
				So(testutil.ToFloat64(globalManager.tacticsStored), ShouldEqual, 7)
			})
		})
	})
}

func TestOperationalMetrics(t *testing.T) {
	Convey("Given operational metrics", t, func() {
		Convey("When recording queue, worker, HTTP and system metrics", func() {
			So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(64)
				UpdateQueueUtilization(3.0 / 64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(2)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(600)
				RecordWorkerError()
				RecordHTTPRequest("/boards/{id}/pointer", "POST", "200")
				RecordHTTPRequestDuration("/boards/{id}/pointer", "POST", "200", 0.4)
				RecordErrorByComponent("worker", "persist")
				RecordErrorByEndpoint("/boards/{id}/save", "POST", "save_in_flight")
				UpdateRepositoryMatches(3)
				RecordRepositoryUpdateLatency(0.2)
				RecordRepositoryQueryLatency(0.1)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the custom registry gathers them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["pitchside_board_queue_capacity"], ShouldBeTrue)
				So(names["pitchside_board_worker_errors_total"], ShouldBeTrue)
				So(names["pitchside_board_http_requests_total"], ShouldBeTrue)
			})
		})
	})
}
