package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the nonce-binding Prometheus metrics.
type Metrics struct {
	BindingsCreated   prometheus.Counter
	BindingsRotated   prometheus.Counter
	BindingsRevoked   prometheus.Counter
	VerifyResults     *prometheus.CounterVec
	VerifyDurationMs  prometheus.Histogram
}

// New creates and registers the nonce-binding metrics.
func New() *Metrics {
	return &Metrics{
		BindingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "calibra_nonce_bindings_created_total",
			Help: "Total nonce bindings created",
		}),
		BindingsRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "calibra_nonce_bindings_rotated_total",
			Help: "Total nonce binding rotations",
		}),
		BindingsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "calibra_nonce_bindings_revoked_total",
			Help: "Total nonce binding revocations",
		}),
		VerifyResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "calibra_nonce_verify_total",
			Help: "Nonce verification outcomes by result",
		}, []string{"result"}),
		VerifyDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "calibra_nonce_verify_duration_ms",
			Help:    "Latency of nonce verification in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}
