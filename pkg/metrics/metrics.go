// Package metrics provides Prometheus metrics for the discovery endpoint manager.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nvme_dem"

// Propagation modes, mirrored from model.MgmtMode, kept as string constants
// here to avoid an import cycle between pkg/model and pkg/metrics.
const (
	ModeLocal     = "local"
	ModeInBand    = "inband"
	ModeOutOfBand = "outofband"
)

var (
	// REST management surface.
	restRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rest_requests_total",
			Help:      "Total REST management requests by method, path and status.",
		},
		[]string{"method", "path", "status"},
	)

	restRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rest_request_duration_seconds",
			Help:      "Duration of REST management requests in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"method", "path"},
	)

	// Pseudo discovery controller connections.
	discoveryConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "discovery_connections_active",
			Help:      "Active host connections on the pseudo discovery controller, by transport.",
		},
		[]string{"trtype"},
	)

	discoveryCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_commands_total",
			Help:      "Commands processed by the pseudo discovery controller, by opcode and status.",
		},
		[]string{"opcode", "status"},
	)

	// AEN notifier.
	aenNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aen_notifications_total",
			Help:      "Total number of synthetic AEN completions fired to hosts.",
		},
	)

	aenPendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aen_pending_requests",
			Help:      "Number of parked AER requests awaiting a notification.",
		},
	)

	// Log-page aggregator.
	logpageFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "logpage_fetch_duration_seconds",
			Help:      "Duration of a per-target log-page refresh pass.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"target"},
	)

	logpageStaleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logpage_stale_total",
			Help:      "Cached log-page entries transitioned to deleted, by target.",
		},
		[]string{"target"},
	)

	// Propagation dispatcher.
	propagateOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagate_operations_total",
			Help:      "Propagation operations by mgmt_mode, operation and status.",
		},
		[]string{"mode", "operation", "status"},
	)

	propagateOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "propagate_operation_duration_seconds",
			Help:      "Duration of propagation operations by mgmt_mode.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"mode"},
	)

	// JSON store.
	storeWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_duration_seconds",
			Help:      "Duration of writing the JSON projection to disk.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
	)

	storeWriteErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_errors_total",
			Help:      "Total number of failed JSON store writes.",
		},
	)
)

// RecordRESTRequest records the outcome of one REST management request.
func RecordRESTRequest(method, path, status string, duration time.Duration) {
	restRequestsTotal.WithLabelValues(method, path, status).Inc()
	restRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetDiscoveryConnections sets the active connection gauge for a transport type.
func SetDiscoveryConnections(trtype string, n int) {
	discoveryConnectionsActive.WithLabelValues(trtype).Set(float64(n))
}

// RecordDiscoveryCommand records a processed Fabrics/Admin command.
func RecordDiscoveryCommand(opcode, status string) {
	discoveryCommandsTotal.WithLabelValues(opcode, status).Inc()
}

// RecordAEN records one fired synthetic AEN completion.
func RecordAEN() {
	aenNotificationsTotal.Inc()
}

// SetAENPending sets the number of parked AER requests.
func SetAENPending(n int) {
	aenPendingGauge.Set(float64(n))
}

// RecordLogpageFetch records the duration of one per-target refresh pass.
func RecordLogpageFetch(target string, duration time.Duration) {
	logpageFetchDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordLogpageStale increments the stale-entry counter for a target.
func RecordLogpageStale(target string, n int) {
	logpageStaleTotal.WithLabelValues(target).Add(float64(n))
}

// RecordPropagation records the outcome of one propagation operation.
func RecordPropagation(mode, operation, status string, duration time.Duration) {
	propagateOpsTotal.WithLabelValues(mode, operation, status).Inc()
	propagateOpDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStoreWrite records the duration of a JSON store write.
func RecordStoreWrite(duration time.Duration, err error) {
	storeWriteDuration.Observe(duration.Seconds())
	if err != nil {
		storeWriteErrorsTotal.Inc()
	}
}

// RESTTimer times a REST handler invocation.
type RESTTimer struct {
	start  time.Time
	method string
	path   string
}

// NewRESTTimer starts timing a REST request.
func NewRESTTimer(method, path string) *RESTTimer {
	return &RESTTimer{start: time.Now(), method: method, path: path}
}

// ObserveStatus records the request's outcome status code class.
func (t *RESTTimer) ObserveStatus(status string) {
	RecordRESTRequest(t.method, t.path, status, time.Since(t.start))
}
