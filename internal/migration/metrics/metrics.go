package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mailmove/internal/migration/models"
)

// Metrics provides observability for a migration run. Counters mirror the
// orchestrator's aggregate totals so dashboards and the final summary agree.
type Metrics struct {
	Processed       prometheus.Counter
	Succeeded       prometheus.Counter
	Failed          prometheus.Counter
	Skipped         prometheus.Counter
	Simulated       prometheus.Counter
	ProcessDuration prometheus.Histogram
	AddressesMoved  prometheus.Counter
}

// New creates a Metrics instance with all migration metrics registered.
func New() *Metrics {
	return &Metrics{
		Processed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_identities_processed_total",
			Help: "Total number of identities processed",
		}),
		Succeeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_identities_succeeded_total",
			Help: "Total number of identities rewritten successfully",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_identities_failed_total",
			Help: "Total number of identities that failed processing",
		}),
		Skipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_identities_skipped_total",
			Help: "Total number of identities already clean",
		}),
		Simulated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_identities_simulated_total",
			Help: "Total number of identities planned in dry-run mode",
		}),
		ProcessDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailmove_identity_process_duration_seconds",
			Help:    "Duration of one identity's fetch-plan-apply cycle",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AddressesMoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_addresses_removed_total",
			Help: "Total number of old-domain addresses removed",
		}),
	}
}

// ObserveOutcome records one processed identity.
func (m *Metrics) ObserveOutcome(status models.Status, start time.Time) {
	m.Processed.Inc()
	m.ProcessDuration.Observe(time.Since(start).Seconds())
	switch status {
	case models.StatusSuccess:
		m.Succeeded.Inc()
	case models.StatusFailed:
		m.Failed.Inc()
	case models.StatusSkipped:
		m.Skipped.Inc()
	case models.StatusSimulated:
		m.Simulated.Inc()
	}
}

// AddRemoved accumulates removed-address counts from successful applies.
func (m *Metrics) AddRemoved(n int) {
	m.AddressesMoved.Add(float64(n))
}
