package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run-level Prometheus metrics for the application
type Metrics struct {
	RunsStarted prometheus.Counter
	RunsFailed  prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_runs_started_total",
			Help: "Total number of migration runs started",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mailmove_runs_failed_total",
			Help: "Total number of migration runs aborted by a fatal error",
		}),
	}
}

// IncrementRunsStarted increments the runs started counter by 1
func (m *Metrics) IncrementRunsStarted() {
	m.RunsStarted.Inc()
}

// IncrementRunsFailed increments the runs failed counter by 1
func (m *Metrics) IncrementRunsFailed() {
	m.RunsFailed.Inc()
}
