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
	// Engine metrics
	SubmissionsTotal    *prometheus.CounterVec
	ConfirmationLatency prometheus.Histogram
	ConfirmWinners      *prometheus.CounterVec
	ResendsTotal        prometheus.Counter
	ResendErrors        prometheus.Counter

	// Pricing metrics
	PriceUpdates       prometheus.Counter
	PriceReconnects    prometheus.Counter
	ActivePriceStreams prometheus.Gauge
	OracleLookups      *prometheus.CounterVec

	// Swap metrics
	SwapsParsed *prometheus.CounterVec

	// Ingestion metrics
	MessagesProcessed        *prometheus.CounterVec
	MessageProcessingLatency *prometheus.HistogramVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSubmission prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_tx_engine"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Engine metrics
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "submissions_total",
			Help:      "Total number of submissions by terminal status",
		}, []string{"status"}),
		ConfirmationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from first send to confirmation in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),
		ConfirmWinners: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "confirm_winners_total",
			Help:      "Which confirmation signal settled first",
		}, []string{"source"}),
		ResendsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "resends_total",
			Help:      "Total number of periodic resends",
		}),
		ResendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "resend_errors_total",
			Help:      "Total number of failed resends",
		}),

		// Pricing metrics
		PriceUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "price_updates_total",
			Help:      "Total number of streamed price updates applied to the cache",
		}),
		PriceReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "stream_reconnects_total",
			Help:      "Total number of price stream reconnects",
		}),
		ActivePriceStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "active_streams",
			Help:      "Number of supervised price streams",
		}),
		OracleLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "oracle_lookups_total",
			Help:      "Price oracle lookups by resolving source",
		}, []string{"source"}),

		// Swap metrics
		SwapsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "parsed_total",
			Help:      "Swap parse attempts by result",
		}, []string{"result"}),

		// Ingestion metrics
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "messages_processed_total",
			Help:      "Total number of inbound messages by source and status",
		}, []string{"source", "status"}),
		MessageProcessingLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "message_processing_latency_seconds",
			Help:      "End to end message processing latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"source"}),

		// Latency metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSubmission: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_submission_timestamp",
			Help:      "Unix timestamp of last confirmed submission",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordSubmission records a terminal submission status.
func RecordSubmission(status string, latencySeconds float64) {
	DefaultMetrics.SubmissionsTotal.WithLabelValues(status).Inc()
	if status == "confirmed" {
		DefaultMetrics.ConfirmationLatency.Observe(latencySeconds)
	}
}

// RecordConfirmWinner records which confirmation signal settled first.
func RecordConfirmWinner(source string) {
	DefaultMetrics.ConfirmWinners.WithLabelValues(source).Inc()
}

// RecordResend records one periodic resend.
func RecordResend(err error) {
	DefaultMetrics.ResendsTotal.Inc()
	if err != nil {
		DefaultMetrics.ResendErrors.Inc()
	}
}

// RecordPriceUpdate increments the streamed price updates counter.
func RecordPriceUpdate() {
	DefaultMetrics.PriceUpdates.Inc()
}

// RecordPriceReconnect increments the price stream reconnects counter.
func RecordPriceReconnect() {
	DefaultMetrics.PriceReconnects.Inc()
}

// SetActivePriceStreams updates the supervised streams gauge.
func SetActivePriceStreams(n int) {
	DefaultMetrics.ActivePriceStreams.Set(float64(n))
}

// RecordOracleLookup records which source resolved a price.
func RecordOracleLookup(source string) {
	DefaultMetrics.OracleLookups.WithLabelValues(source).Inc()
}

// RecordSwapParse records a swap parse result.
func RecordSwapParse(result string) {
	DefaultMetrics.SwapsParsed.WithLabelValues(result).Inc()
}

// RecordMessage records an inbound message.
func RecordMessage(source, status string, seconds float64) {
	DefaultMetrics.MessagesProcessed.WithLabelValues(source, status).Inc()
	DefaultMetrics.MessageProcessingLatency.WithLabelValues(source).Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkSubmissionSuccess sets the last successful submission timestamp.
func MarkSubmissionSuccess(unix int64) {
	DefaultMetrics.LastSuccessfulSubmission.Set(float64(unix))
}
