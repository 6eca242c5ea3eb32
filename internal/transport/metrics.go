package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the transport collectors.
type Metrics struct {
	Attempts     *prometheus.CounterVec
	Retries      *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	BreakerState prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starmf",
			Subsystem: "transport",
			Name:      "attempts_total",
			Help:      "Physical calls to the order-entry service by method and outcome",
		}, []string{"method", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "starmf",
			Subsystem: "transport",
			Name:      "retries_total",
			Help:      "Retries scheduled after a transient failure",
		}, []string{"method"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "starmf",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Duration of a physical call in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "starmf",
			Subsystem: "transport",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Attempts, m.Retries, m.Duration, m.BreakerState)
	}
	return m
}
