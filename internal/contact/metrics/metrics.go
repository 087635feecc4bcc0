package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contact module.
// Tracks mutation counts and the duration of the enrichment-bearing paths.
type Metrics struct {
	ContactsCreated prometheus.Counter
	ContactsUpdated prometheus.Counter
	ContactsDeleted prometheus.Counter

	AddDuration  prometheus.Histogram
	ListDuration prometheus.Histogram
}

// New creates a Metrics instance with all contact module metrics registered.
func New() *Metrics {
	return &Metrics{
		ContactsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agenda_contacts_created_total",
			Help: "Total number of contacts created",
		}),
		ContactsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agenda_contacts_updated_total",
			Help: "Total number of contacts updated",
		}),
		ContactsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agenda_contacts_deleted_total",
			Help: "Total number of contacts deleted",
		}),
		AddDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agenda_add_contact_duration_seconds",
			Help:    "Duration of AddContact including the full enrichment pipeline",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agenda_list_contacts_duration_seconds",
			Help:    "Duration of ListContacts including per-contact time recomputation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementCreated records a successful contact creation.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.ContactsCreated.Inc()
	}
}

// IncrementUpdated records a successful contact update.
func (m *Metrics) IncrementUpdated() {
	if m != nil {
		m.ContactsUpdated.Inc()
	}
}

// IncrementDeleted records a successful contact deletion.
func (m *Metrics) IncrementDeleted() {
	if m != nil {
		m.ContactsDeleted.Inc()
	}
}

// ObserveAdd records the duration of an AddContact operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAdd(start time.Time) {
	if m != nil {
		m.AddDuration.Observe(time.Since(start).Seconds())
	}
}

// ObserveList records the duration of a ListContacts operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveList(start time.Time) {
	if m != nil {
		m.ListDuration.Observe(time.Since(start).Seconds())
	}
}
