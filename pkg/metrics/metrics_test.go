package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording judgment metrics", func() {
			Convey("Then it should record accepted judgments", func() {
				So(func() {
					RecordJudgmentRecorded("screening")
					RecordJudgmentRecorded("scoring")
					RecordJudgmentSuperseded()
				}, ShouldNotPanic)
			})

			Convey("And it should record rejections by reason", func() {
				So(func() {
					RecordJudgmentRejected("validation")
					RecordJudgmentRejected("permission")
					RecordJudgmentRejected("state")
				}, ShouldNotPanic)
			})

			Convey("And it should record status transitions", func() {
				So(func() {
					RecordStatusTransition("scoring_phase_1")
					RecordStatusTransition("ineligible")
				}, ShouldNotPanic)
			})
		})

		Convey("When recording intake metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() {
					RecordSubmissionCreated()
					RecordSubmissionDuplicate()
					RecordIntakeCheckFlagged()
					RecordIntakeCheckError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording journal metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() {
					UpdateJournalRecordsTotal(10)
					UpdateJournalActiveRecords(7)
					RecordJournalAppendLatency(1.2)
					RecordJournalQueryLatency(0.4)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() {
					UpdateQueueSize(3)
					UpdateQueueCapacity(100)
					UpdateQueueUtilization(0.03)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					UpdateWorkerActiveCount(4)
					RecordWorkerProcessingLatency(2.5)
					RecordWorkerError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording HTTP metrics", func() {
			Convey("Then it should not panic", func() {
				So(func() {
					RecordHTTPRequest("submissions", "POST", "202")
					RecordHTTPRequestDuration("submissions", "POST", "202", 3.4)
					RecordErrorByEndpoint("submissions", "POST", "client_error")
					RecordErrorByComponent("journal", "append_failed")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the metrics package", t, func() {
		Convey("When getting the registry", func() {
			registry := GetRegistry()

			Convey("Then it should return the custom registry", func() {
				So(registry, ShouldNotBeNil)
			})
		})
	})
}
