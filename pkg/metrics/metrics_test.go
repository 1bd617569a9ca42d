package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register under the runboard namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.fetchCycles.WithLabelValues(OutcomeSuccess).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["runboard_dashboard_fetch_cycles_total"], ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"repo": "octo/hello"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors carry the custom naming and labels", func() {
				manager.userCount.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() != "test_sub_user_count" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					So(len(labels), ShouldEqual, 1)
					So(labels[0].GetName(), ShouldEqual, "repo")
					So(labels[0].GetValue(), ShouldEqual, "octo/hello")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are supplied", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "runboard")
				So(manager.subsystem, ShouldEqual, "dashboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.constLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording fetch cycles", func() {
			before := testutil.ToFloat64(globalManager.fetchCycles.WithLabelValues(OutcomeFailure))
			RecordFetchCycle(OutcomeFailure, 12)
			RecordFetchCycle(OutcomeSuccess, 8)

			Convey("Then the outcome counters move", func() {
				So(testutil.ToFloat64(globalManager.fetchCycles.WithLabelValues(OutcomeFailure)), ShouldEqual, before+1)
			})
		})

		Convey("When updating fetched totals", func() {
			UpdateFetched(4, 57)

			Convey("Then the gauges hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.workflowsFetched), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.runsFetched), ShouldEqual, 57)
			})
		})

		Convey("When recording the user count", func() {
			UpdateUserCount(1234)
			before := testutil.ToFloat64(globalManager.userCountFailures)
			RecordUserCountFailure()

			Convey("Then the gauge and failure counter update", func() {
				So(testutil.ToFloat64(globalManager.userCount), ShouldEqual, 1234)
				So(testutil.ToFloat64(globalManager.userCountFailures), ShouldEqual, before+1)
			})
		})

		Convey("When recording upstream requests", func() {
			before := testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("github_runs", "502"))
			RecordUpstreamRequest("github_runs", "502", 30)

			Convey("Then the request counter increments per target and status", func() {
				So(testutil.ToFloat64(globalManager.upstreamRequests.WithLabelValues("github_runs", "502")), ShouldEqual, before+1)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("dashboard", "GET", "200")
				RecordHTTPRequestDuration("dashboard", "GET", "200", 5.0)
				RecordErrorByComponent("fetch", "upstream_status")
				RecordErrorByType("server_error", "high")
				RecordErrorByEndpoint("proxy", "GET", "server_error")
				RecordErrorLatency("http", "server_error", 100.0)
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 12)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.fetchCycles.WithLabelValues(OutcomeCanceled))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordFetchCycle(OutcomeCanceled, 1)
				RecordUpstreamRequest("analytics", "200", 1)
			}()
		}
		wg.Wait()

		Convey("Then no increments are lost", func() {
			So(testutil.ToFloat64(globalManager.fetchCycles.WithLabelValues(OutcomeCanceled)), ShouldEqual, before+50)
		})
	})
}
