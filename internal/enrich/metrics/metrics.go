package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrichment lookups.
type Metrics struct {
	LookupDuration *prometheus.HistogramVec
	LookupFailures *prometheus.CounterVec
}

// New creates a Metrics instance with all enrichment metrics registered.
func New() *Metrics {
	return &Metrics{
		LookupDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agenda_lookup_duration_seconds",
			Help:    "Duration of external enrichment lookups by service",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"service"}),
		LookupFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agenda_lookup_failures_total",
			Help: "Total failed enrichment lookups by service and kind",
		}, []string{"service", "kind"}),
	}
}

// ObserveLookup records the duration of one lookup call.
// Call with time.Now() at the start of the call.
func (m *Metrics) ObserveLookup(service string, start time.Time) {
	if m == nil {
		return
	}
	m.LookupDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// IncrementFailure records a failed lookup. Kind is "status" for transport
// failures and "not_found" for empty result sets.
func (m *Metrics) IncrementFailure(service, kind string) {
	if m == nil {
		return
	}
	m.LookupFailures.WithLabelValues(service, kind).Inc()
}
