package metrics

import "github.com/prometheus/client_golang/prometheus"

type AuthMetrics struct {
	Resolutions *prometheus.CounterVec
	Logins      *prometheus.CounterVec
}

func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "resolutions_total",
			Help:      "Total number of per-request identity resolutions, by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of interactive login attempts, by method and outcome.",
		}, []string{"method", "outcome"}),
	}

	reg.MustRegister(m.Resolutions, m.Logins)
	return m
}

func (m *AuthMetrics) Resolved(strategy, outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(strategy, outcome).Inc()
}

func (m *AuthMetrics) Login(method, outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(method, outcome).Inc()
}
