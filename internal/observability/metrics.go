// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	EventsProcessed       *prometheus.CounterVec
	EventsStored          prometheus.Counter
	EventParseErrors      prometheus.Counter
	EventProcessingErrors *prometheus.CounterVec
	WSReconnects          prometheus.Counter

	// Buffer metrics
	EventBufferSize   prometheus.Gauge
	HighestBlockSeen  prometheus.Gauge
	ReplicaDivergence prometheus.Counter

	// Replica metrics
	ReplicaTotalSupply prometheus.Gauge
	ReplicaHolders     prometheus.Gauge

	// Latency metrics
	EventProcessingLatency prometheus.Histogram
	RPCCallLatency         *prometheus.HistogramVec

	// Deployment metrics
	DeploymentRuns     *prometheus.CounterVec
	DeploymentDuration prometheus.Histogram

	// Verification metrics
	VerificationChecks *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	UptimeSeconds           prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "itlx_token"
	}

	return &Metrics{
		// Ingestion metrics
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_processed_total",
			Help:      "Total number of token events processed by kind",
		}, []string{"kind"}),
		EventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_stored_total",
			Help:      "Total number of transfer records stored to database",
		}),
		EventParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "event_parse_errors_total",
			Help:      "Total number of EVENT_JSON log lines that failed to parse",
		}),
		EventProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "event_processing_errors_total",
			Help:      "Total number of event processing errors by type",
		}, []string{"error_type"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		// Buffer metrics
		EventBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "event_buffer_size",
			Help:      "Current number of blocks in the event buffer",
		}),
		HighestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "highest_block_seen",
			Help:      "Highest NEAR block height seen",
		}),
		ReplicaDivergence: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "divergence_total",
			Help:      "Total number of events the balance replica rejected as inconsistent",
		}),

		// Replica metrics
		ReplicaTotalSupply: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "total_supply",
			Help:      "Replica total supply in smallest units (approximate float)",
		}),
		ReplicaHolders: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "holders",
			Help:      "Number of accounts with a nonzero replica balance",
		}),

		// Latency metrics
		EventProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "event_processing_latency_seconds",
			Help:      "Event processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "near",
			Name:      "rpc_call_latency_seconds",
			Help:      "NEAR RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Deployment metrics
		DeploymentRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "runs_total",
			Help:      "Total number of deployment runs by status",
		}, []string{"status"}),
		DeploymentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "duration_seconds",
			Help:      "Deployment run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Verification metrics
		VerificationChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "checks_total",
			Help:      "Total number of post-deploy verification checks by name and status",
		}, []string{"check", "status"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successfully stored event",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed increments the processed counter for an event kind.
func RecordEventProcessed(kind string) {
	DefaultMetrics.EventsProcessed.WithLabelValues(kind).Inc()
}

// RecordEventStored increments the stored counter and refreshes the health gauge.
func RecordEventStored(unixTime int64) {
	DefaultMetrics.EventsStored.Inc()
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixTime))
}

// RecordParseError increments the EVENT_JSON parse error counter.
func RecordParseError() {
	DefaultMetrics.EventParseErrors.Inc()
}

// RecordEventError records an event processing error.
func RecordEventError(errorType string) {
	DefaultMetrics.EventProcessingErrors.WithLabelValues(errorType).Inc()
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordDivergence increments the replica divergence counter.
func RecordDivergence() {
	DefaultMetrics.ReplicaDivergence.Inc()
}

// UpdateReplica updates the replica supply and holder gauges.
func UpdateReplica(totalSupply float64, holders int) {
	DefaultMetrics.ReplicaTotalSupply.Set(totalSupply)
	DefaultMetrics.ReplicaHolders.Set(float64(holders))
}

// UpdateBufferSize updates the event buffer gauge.
func UpdateBufferSize(blocks int) {
	DefaultMetrics.EventBufferSize.Set(float64(blocks))
}

// UpdateHighestBlock updates the highest block seen gauge.
func UpdateHighestBlock(height int64) {
	DefaultMetrics.HighestBlockSeen.Set(float64(height))
}

// RecordRPCLatency records NEAR RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDeploymentRun records a deployment run outcome.
func RecordDeploymentRun(status string, durationSeconds float64) {
	DefaultMetrics.DeploymentRuns.WithLabelValues(status).Inc()
	DefaultMetrics.DeploymentDuration.Observe(durationSeconds)
}

// RecordVerificationCheck records a single verification check result.
func RecordVerificationCheck(check string, passed bool) {
	status := "pass"
	if !passed {
		status = "fail"
	}
	DefaultMetrics.VerificationChecks.WithLabelValues(check, status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
