package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks calls to Coolify and the Cloudflare Access JWKS
// endpoint, plus the state of the circuit breakers guarding them.
type UpstreamMetrics struct {
	RequestDuration    *prometheus.HistogramVec
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	m := &UpstreamMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of upstream requests in seconds, by upstream, endpoint and status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"upstream", "endpoint", "status"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"upstream"}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions, by target state.",
		}, []string{"upstream", "state"}),
	}

	reg.MustRegister(m.RequestDuration, m.BreakerState, m.BreakerTransitions)
	return m
}

// ObserveRequest records one upstream call. status 0 means the request never
// produced a response (transport error, open breaker).
func (m *UpstreamMetrics) ObserveRequest(upstream, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestDuration.WithLabelValues(upstream, endpoint, label).Observe(d.Seconds())
}

// BreakerChanged records a transition. state is one of closed, half-open, open.
func (m *UpstreamMetrics) BreakerChanged(upstream, state string) {
	if m == nil {
		return
	}
	m.BreakerTransitions.WithLabelValues(upstream, state).Inc()
	m.BreakerState.WithLabelValues(upstream).Set(breakerStateValue(state))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
