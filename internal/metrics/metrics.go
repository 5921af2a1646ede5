/**
 * Prometheus collectors for the KPI OCR service
 */

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_extractions_total",
		Help: "Screenshot extraction attempts by outcome.",
	}, []string{"status"})

	ocrDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpi_ocr_duration_seconds",
		Help:    "Wall time of the OCR engine call.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	deltaRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_delta_requests_total",
		Help: "Delta report computations by outcome.",
	}, []string{"status"})

	snapshotsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpi_snapshots_saved_total",
		Help: "Snapshots persisted to storage.",
	})
)

func RecordExtraction(status string) {
	extractionsTotal.WithLabelValues(status).Inc()
}

func ObserveOCRDuration(d time.Duration) {
	ocrDuration.Observe(d.Seconds())
}

func RecordDeltaRequest(status string) {
	deltaRequests.WithLabelValues(status).Inc()
}

func RecordSnapshotSaved() {
	snapshotsSaved.Inc()
}
