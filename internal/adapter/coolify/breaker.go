package coolify

import (
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerDelay            = 30 * time.Second
	upstreamName            = "coolify"
)

// NewBreaker opens after five consecutive failures and probes again after
// 30s. Only transport errors and 5xx responses are recorded as failures.
func NewBreaker(m *metrics.UpstreamMetrics) circuitbreaker.CircuitBreaker[any] {
	return newBreaker(breakerDelay, m)
}

func newBreaker(delay time.Duration, m *metrics.UpstreamMetrics) circuitbreaker.CircuitBreaker[any] {
	m.BreakerChanged(upstreamName, "closed")

	return circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(breakerFailureThreshold).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", upstreamName,
				"from", stateName(e.OldState),
				"to", stateName(e.NewState),
			)
			m.BreakerChanged(upstreamName, stateName(e.NewState))
		}).
		Build()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}
