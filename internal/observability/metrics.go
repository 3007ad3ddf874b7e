package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcapcat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pcapcat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	indexBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcapcat",
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Index rebuilds by outcome.",
		},
		[]string{"success"},
	)
	indexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pcapcat",
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Index rebuild duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)
	indexedFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pcapcat",
			Subsystem: "index",
			Name:      "files",
			Help:      "Capture files in the current snapshot.",
		},
	)
	extractionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pcapcat",
			Subsystem: "index",
			Name:      "extraction_failures_total",
			Help:      "Capture files skipped because the dissector failed.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, indexBuilds, indexBuildDuration, indexedFiles, extractionFailures)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordIndexBuild records one rebuild attempt. files and failed are only
// applied when the rebuild committed.
func RecordIndexBuild(success bool, files, failed int, duration time.Duration) {
	RegisterMetrics()
	indexBuilds.WithLabelValues(strconv.FormatBool(success)).Inc()
	indexBuildDuration.Observe(duration.Seconds())
	if !success {
		return
	}
	indexedFiles.Set(float64(files))
	extractionFailures.Add(float64(failed))
}
