// Package metrics exposes Prometheus counters for shortening and redirect outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "url_shortener"

// Metrics records service outcomes. A nil *Metrics records nothing.
type Metrics struct {
	created   *prometheus.CounterVec
	redirects *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_created_total",
			Help:      "Number of shorten requests by outcome.",
		}, []string{"status"}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Number of redirect lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.created, m.redirects)

	return m
}

func (m *Metrics) ObserveCreate(status string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRedirect(outcome string) {
	if m == nil {
		return
	}
	m.redirects.WithLabelValues(outcome).Inc()
}
