package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type DashboardMetrics struct {
	LoadDuration    prometheus.Histogram
	SectionFailures *prometheus.CounterVec
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "load_duration_seconds",
			Help:      "Duration of the concurrent dashboard data load in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		SectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "section_failures_total",
			Help:      "Total number of dashboard sections that failed to load, by section.",
		}, []string{"section"}),
	}

	reg.MustRegister(m.LoadDuration, m.SectionFailures)
	return m
}

func (m *DashboardMetrics) Loaded(d time.Duration, failed []string) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(d.Seconds())
	for _, section := range failed {
		m.SectionFailures.WithLabelValues(section).Inc()
	}
}
