// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Batch outcomes.
const (
	BatchOK         = "ok"
	BatchEmpty      = "empty"
	BatchEndOfSpace = "end_of_space"
)

// Result labels shared by fetch, publish and checkpoint counters.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_batches_total",
			Help: "Total number of ID batches processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetch_attempts_total",
			Help: "Total number of catalog fetch attempts, labeled by result.",
		},
		[]string{"result"},
	)

	fetchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_fetch_duration_seconds",
			Help:    "Histogram of catalog batch fetch latencies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	entitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_entities_total",
			Help: "Total number of catalog entities seen, labeled by whether they matched the target category.",
		},
		[]string{"match"},
	)

	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_publish_total",
			Help: "Total number of work queue publishes, labeled by status.",
		},
		[]string{"status"},
	)

	checkpointWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_checkpoint_writes_total",
			Help: "Total number of checkpoint writes, labeled by status.",
		},
		[]string{"status"},
	)

	cursorGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_cursor",
			Help: "Next identifier the crawler will fetch.",
		},
	)

	checkpointCursorGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_checkpoint_cursor",
			Help: "Cursor value most recently persisted to the checkpoint store.",
		},
	)

	fetchStalledGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_fetch_stalled",
			Help: "1 while the current batch has failed at least retry_alert_after times in a row.",
		},
	)

	rateLimitDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_rate_limit_delay_seconds",
			Help:    "Histogram of time spent waiting on the catalog rate limiter.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBatch increments the batch counter for the given outcome.
func ObserveBatch(outcome string) {
	batchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records one fetch attempt and its latency.
func ObserveFetch(err error, duration time.Duration) {
	result := StatusSuccess
	if err != nil {
		result = StatusError
	}
	fetchAttemptsTotal.WithLabelValues(result).Inc()
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveEntity counts a classified entity.
func ObserveEntity(matched bool) {
	entitiesTotal.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

// ObservePublish counts a publish attempt.
func ObservePublish(err error) {
	publishTotal.WithLabelValues(statusOf(err)).Inc()
}

// ObserveCheckpointWrite counts a checkpoint write and, on success, records the persisted cursor.
func ObserveCheckpointWrite(cursor int64, err error) {
	checkpointWritesTotal.WithLabelValues(statusOf(err)).Inc()
	if err == nil {
		checkpointCursorGauge.Set(float64(cursor))
	}
}

// SetCursor records the in-memory cursor.
func SetCursor(cursor int64) {
	cursorGauge.Set(float64(cursor))
}

// SetPersistedCursor records the cursor loaded from the checkpoint store at startup.
func SetPersistedCursor(cursor int64) {
	checkpointCursorGauge.Set(float64(cursor))
}

// SetFetchStalled toggles the stalled gauge.
func SetFetchStalled(stalled bool) {
	if stalled {
		fetchStalledGauge.Set(1)
		return
	}
	fetchStalledGauge.Set(0)
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	rateLimitDelaySeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
