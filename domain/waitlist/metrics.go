package waitlist

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	signups      *prometheus.CounterVec
	deduplicated prometheus.Counter
	rejected     *prometheus.CounterVec
	cleaned      *prometheus.CounterVec
}

// NewMetrics registers the waitlist collectors on reg. A nil reg yields nil, and every
// method on a nil *Metrics is a no-op.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_signups_total",
			Help: "Captured waitlist signups",
		}, []string{"source", "platform"}),
		deduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "waitlist_signups_deduplicated_total",
			Help: "Submissions collapsed by the submission guard",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_signups_rejected_total",
			Help: "Submissions rejected by validation",
		}, []string{"reason"}),
		cleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_cleanup_removed_total",
			Help: "Rows removed by applied cleanup sweeps",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.signups, m.deduplicated, m.rejected, m.cleaned)
	return m
}

func (m *Metrics) signup(source, platform string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(source, platform).Inc()
}

func (m *Metrics) dedupe() {
	if m == nil {
		return
	}
	m.deduplicated.Inc()
}

func (m *Metrics) reject(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) cleanup(report *CleanupReport) {
	if m == nil || report == nil {
		return
	}
	m.cleaned.WithLabelValues(ReasonDuplicate).Add(float64(report.Duplicates))
	m.cleaned.WithLabelValues(ReasonInvalid).Add(float64(report.Invalid))
	m.cleaned.WithLabelValues(ReasonTest).Add(float64(report.TestData))
}
