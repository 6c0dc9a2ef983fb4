package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ReservationsCommitted prometheus.Counter
	ReservationsRejected  *prometheus.CounterVec
	ReservationsReleased  prometheus.Counter
	LedgerMutations       *prometheus.CounterVec
	LockTimeouts          prometheus.Counter
	LockWait              prometheus.Histogram
	BatchDates            *prometheus.CounterVec
	BatchDuration         prometheus.Histogram
	ActivityExecutions    prometheus.Counter
	ActivityDuration      prometheus.Histogram
	ActivityErrors        prometheus.Counter
}

// NewMetrics creates a metrics collector registered on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a metrics collector registered on reg
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReservationsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reservations_committed_total",
			Help: "Total number of reserve calls committed",
		}),
		ReservationsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_reservations_rejected_total",
			Help: "Total number of reserve calls rejected, by error code",
		}, []string{"code"}),
		ReservationsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reservations_released_total",
			Help: "Total number of reservation tokens released",
		}),
		LedgerMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Total number of operator ledger mutations, by operation and outcome",
		}, []string{"operation", "outcome"}),
		LockTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_lock_timeouts_total",
			Help: "Total number of day lock acquisitions that timed out",
		}),
		LockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_lock_wait_seconds",
			Help:    "Time spent acquiring day locks per operation",
			Buckets: []float64{.0001, .001, .01, .05, .1, .5, 1, 5},
		}),
		BatchDates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_mutation_dates_total",
			Help: "Dates processed by batch mutations, by mutation and outcome",
		}, []string{"mutation", "outcome"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_mutation_duration_seconds",
			Help:    "Batch mutation execution duration in seconds",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5},
		}),
		ActivityExecutions: factory.NewCounter(prometheus.CounterOpts{
			Name: "activity_executions_total",
			Help: "Total number of activity executions",
		}),
		ActivityDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "activity_duration_seconds",
			Help:    "Activity execution duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10},
		}),
		ActivityErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "activity_errors_total",
			Help: "Total number of activity errors",
		}),
	}
}

// RecordReserve records the outcome of a reserve call
func (m *Metrics) RecordReserve(code string) {
	if m == nil {
		return
	}
	if code == "" {
		m.ReservationsCommitted.Inc()
		return
	}
	m.ReservationsRejected.WithLabelValues(code).Inc()
}

// RecordRelease records a token release that changed the ledger
func (m *Metrics) RecordRelease() {
	if m == nil {
		return
	}
	m.ReservationsReleased.Inc()
}

// RecordMutation records an operator mutation outcome
func (m *Metrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.LedgerMutations.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordLockWait records lock acquisition latency
func (m *Metrics) RecordLockWait(d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
	if timedOut {
		m.LockTimeouts.Inc()
	}
}

// RecordBatch records the per-date results of a batch mutation
func (m *Metrics) RecordBatch(mutation string, applied, rejected int, duration time.Duration) {
	if m == nil {
		return
	}
	m.BatchDates.WithLabelValues(mutation, "applied").Add(float64(applied))
	m.BatchDates.WithLabelValues(mutation, "rejected").Add(float64(rejected))
	m.BatchDuration.Observe(duration.Seconds())
}

// RecordActivityExecution records activity execution
func (m *Metrics) RecordActivityExecution(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.ActivityExecutions.Inc()
	m.ActivityDuration.Observe(duration.Seconds())
	if err != nil {
		m.ActivityErrors.Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return "rejected"
	}
	return "applied"
}
