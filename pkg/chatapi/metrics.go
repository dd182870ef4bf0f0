package chatapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client's Prometheus collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Chunks   prometheus.Counter
}

// NewMetrics registers the client collectors with reg. A nil reg registers
// them with a private registry, which keeps them out of any exposition.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorychat",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Chat API requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorychat",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Chat API retry attempts by operation",
		}, []string{"operation"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factorychat",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Chat API request duration including retries",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		Chunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "factorychat",
			Subsystem: "client",
			Name:      "stream_chunks_total",
			Help:      "Answer chunks delivered to stream handlers",
		}),
	}
}

// outcome labels a finished request for the requests counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	case IsRetryable(err):
		return "unavailable"
	default:
		return "error"
	}
}
