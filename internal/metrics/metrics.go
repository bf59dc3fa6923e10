package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Quarantine strategies.
const (
	StrategyFlag   = "flag"
	StrategyDelete = "delete"
)

// Metrics provides observability for the record store: operation counts and
// durations by kind (read or write) and operation name, and rows diverted by
// the quarantine policy.
//
// All methods are safe on a nil *Metrics.
type Metrics struct {
	Operations  *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Quarantined *prometheus.CounterVec
}

// New registers the store metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordkeeper_operations_total",
			Help: "Total number of source operations by kind, operation and outcome",
		}, []string{"kind", "operation", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recordkeeper_operation_duration_seconds",
			Help:    "Duration of source operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind", "operation"}),
		Quarantined: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordkeeper_quarantined_rows_total",
			Help: "Rows that failed domain validation, by model and strategy",
		}, []string{"model", "strategy"}),
	}
}

// ObserveOperation records one finished operation.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveOperation(kind, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(kind, operation, outcome).Inc()
	m.Duration.WithLabelValues(kind, operation).Observe(time.Since(start).Seconds())
}

// AddQuarantined counts n rows of model diverted with strategy.
func (m *Metrics) AddQuarantined(model, strategy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Quarantined.WithLabelValues(model, strategy).Add(float64(n))
}
