package rowsink

import (
	"github.com/akeren/waitlist-landing/pkg/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	delivered    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	dropped      prometheus.Counter
	breakerState *prometheus.GaugeVec
}

// NewMetrics registers the sink collectors on reg; a nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		delivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_sink_deliveries_total",
				Help: "Rows delivered to a remote sink.",
			},
			[]string{"sink"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_sink_failures_total",
				Help: "Rows a remote sink failed to accept.",
			},
			[]string{"sink"},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "waitlist_sink_dropped_total",
				Help: "Rows dropped because the sink queue was full or closed.",
			},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "waitlist_sink_circuit_state",
				Help: "Circuit breaker state per sink (0 closed, 1 open, 2 half-open).",
			},
			[]string{"sink"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.delivered, m.failures, m.dropped, m.breakerState)
	}
	return m
}

// ObserveBreaker is a circuitbreaker.StateChangeFunc.
func (m *Metrics) ObserveBreaker(name string, _, to circuitbreaker.CircuitState) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

func (m *Metrics) delivery(sink string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failures.WithLabelValues(sink).Inc()
		return
	}
	m.delivered.WithLabelValues(sink).Inc()
}

func (m *Metrics) drop() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
