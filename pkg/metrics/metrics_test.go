package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pipeline"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithMetricsEnabled(true),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.uploads.WithLabelValues("recommendation", "ok").Inc()

			Convey("Then metric names should carry namespace and subsystem", func() {
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_pipeline_uploads_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := testutil.ToFloat64(Global().rowsScored)
			RecordRowsScored(4)
			RecordUpload("recommendation", "ok")
			RecordStageLatency(StageScore, 1.5)
			RecordGroupsRanked(2)
			RecordZeroSpendGroups(1)
			RecordReplay()

			Convey("Then counters should move", func() {
				So(testutil.ToFloat64(Global().rowsScored)-before, ShouldEqual, 4)
				So(testutil.ToFloat64(Global().uploads.WithLabelValues("recommendation", "ok")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording auth and model metrics", func() {
			So(func() {
				RecordLoginAttempt("success")
				IncActiveSessions()
				DecActiveSessions()
				RecordModelLoad("ok", 2)
				RecordModelInvalidation()
				UpdateHistoryRuns(3)
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("recommendation", "POST", "200")
				RecordHTTPRequestDuration("recommendation", "POST", "200", 12)
				RecordErrorByComponent("scoring", "schema_mismatch")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("recommendation", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 3)
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(7)
			RecordSystemGCPauseTime(0.2)

			Convey("Then the registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "mmo_optimizer_system_goroutines")
			})
		})
	})
}
