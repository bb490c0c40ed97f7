// Package telemetry provides application-level observability for Order Sentinel.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<OSN_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text
// exposition format and is intended to be scraped every 15–60 seconds.
//
// # Metric Groups
//
//   - Sweep counters and duration histogram
//   - Finding counters (labelled by finding type)
//   - Detector error counters (labelled by detector name)
//   - Notification delivery counters (labelled by channel)
//   - Database connection pool gauge (polled every 30 s)
//
// # Usage
//
//	telemetry.FindingsTotal.WithLabelValues(finding.Type).Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sweep metrics — recorded by the detection engine once per RunSweep call.
//
// SweepsTotal counts completed sweeps; a sweep "completes" even when some of
// its detectors failed, because detector failure is contained by design.
//
// SweepDuration uses the default Prometheus buckets (5 ms–10 s).
//
// Example PromQL queries:
//   - Sweep rate:          rate(detection_sweeps_total[1h])
//   - p95 sweep duration:  histogram_quantile(0.95, rate(detection_sweep_duration_seconds_bucket[1h]))
var (
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_sweeps_total",
			Help: "Total number of completed detection sweeps.",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_sweep_duration_seconds",
			Help:    "Duration of a single full detection sweep.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Detection outcome metrics.
//
// FindingsTotal is a CounterVec with label {type} (high_purchase,
// auth_failure, unusual_access), incremented once per finding recorded.
//
// DetectorErrorsTotal is a CounterVec with label {detector}. Detector errors
// are contained — they never fail the sweep — so this counter is the only
// place they surface besides the log. An alert on
// rate(detector_errors_total[1h]) > 0 is recommended.
var (
	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_findings_total",
			Help: "Total number of anomaly findings recorded, by finding type.",
		},
		[]string{"type"},
	)

	DetectorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detector_errors_total",
			Help: "Total number of contained detector failures, by detector name.",
		},
		[]string{"detector"},
	)
)

// Notification delivery metrics — recorded by the dispatcher.
//
// Channel failures are swallowed at the dispatch boundary, so a rising
// NotificationErrorsTotal with a flat NotificationsSentTotal is the signal
// that a channel is misconfigured or its backend is down.
//
// Example PromQL queries:
//   - Delivery error rate by channel:  rate(notification_errors_total[1h])
//   - Alert expression:                increase(notification_errors_total[30m]) > 3
var (
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of alert notifications successfully delivered, by channel.",
		},
		[]string{"channel"},
	)

	NotificationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_errors_total",
			Help: "Total number of failed notification delivery attempts, by channel.",
		},
		[]string{"channel"},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections
// currently held by the sql.DB connection pool.  It is sampled every 30
// seconds by StartDBStatsCollector rather than per-query to avoid the
// overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates the
// DBOpenConnections gauge. The goroutine exits cleanly when the database
// becomes unreachable (db.Ping fails), which happens automatically when the
// application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
