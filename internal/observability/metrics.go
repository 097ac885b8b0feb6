// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sonic_transfer"

// Metrics holds all Prometheus metrics for the application.
// It implements transfer.Recorder.
type Metrics struct {
	// Transfer metrics
	TransfersAttempted prometheus.Counter
	TransfersSucceeded prometheus.Counter
	TransfersFailed    *prometheus.CounterVec
	LamportsSent       prometheus.Counter
	TransferDuration   prometheus.Histogram

	// Account metrics
	TrackedBalance prometheus.Gauge

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransfersAttempted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "attempted_total",
			Help:      "Total number of transfer attempts",
		}),
		TransfersSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "succeeded_total",
			Help:      "Total number of confirmed transfers",
		}),
		TransfersFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "failed_total",
			Help:      "Total number of failed transfers by reason",
		}, []string{"reason"}),
		LamportsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "lamports_sent_total",
			Help:      "Total lamports moved by confirmed transfers",
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Send-to-confirmation latency of successful transfers",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}),
		TrackedBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "tracked_balance_lamports",
			Help:      "Locally tracked sender balance in lamports",
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "JSON-RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// TransferAttempted increments the attempt counter.
func (m *Metrics) TransferAttempted() {
	m.TransfersAttempted.Inc()
}

// TransferSucceeded records a confirmed transfer.
func (m *Metrics) TransferSucceeded(lamports uint64, elapsed time.Duration) {
	m.TransfersSucceeded.Inc()
	m.LamportsSent.Add(float64(lamports))
	m.TransferDuration.Observe(elapsed.Seconds())
}

// TransferFailed records a failed transfer.
func (m *Metrics) TransferFailed(reason string) {
	m.TransfersFailed.WithLabelValues(reason).Inc()
}

// SetBalance updates the tracked balance gauge.
func (m *Metrics) SetBalance(lamports uint64) {
	m.TrackedBalance.Set(float64(lamports))
}

// ObserveRPC records RPC call latency. Its signature matches solana.LatencyObserver.
func (m *Metrics) ObserveRPC(method string, d time.Duration) {
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Handler returns an HTTP handler serving /metrics from gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServeMux exposes /metrics and /health.
func NewServeMux(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
