package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TenantCreated   prometheus.Counter
	TenantDeleted   prometheus.Counter
	ResolveDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_tenants_deleted_total",
			Help: "Total number of tenants deleted",
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "photoportal_tenant_resolve_duration_seconds",
			Help:    "Duration of subdomain tenant resolution (request hot path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

func (m *Metrics) IncrementTenantDeleted() {
	m.TenantDeleted.Inc()
}

func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
