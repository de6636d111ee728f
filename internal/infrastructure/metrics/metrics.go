package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Expense metrics
	ExpensesCreated prometheus.Counter
	ExpenseAmount   prometheus.Histogram

	// Settlement metrics
	BatchesComputed    prometheus.Counter
	BatchesVoided      prometheus.Counter
	SettlementsPaid    prometheus.Counter
	TransfersPerBatch  prometheus.Histogram
	SettlementDuration prometheus.Histogram

	// Concurrency control metrics
	VersionConflicts   *prometheus.CounterVec
	IdempotentReplays  *prometheus.CounterVec
	IdempotencyPurged  prometheus.Counter
	IntegrityFailures  prometheus.Counter
	CacheBreakerStates *prometheus.CounterVec

	// Outbox metrics
	ActivitiesPublished prometheus.Counter
	PublishErrors       prometheus.Counter

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExpensesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_expenses_created_total",
			Help: "Total number of expenses created",
		}),
		ExpenseAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "splitledger_expense_amount_cents",
			Help:    "Expense amounts in cents",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}),

		BatchesComputed: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_settlement_batches_computed_total",
			Help: "Total number of settlement batches computed",
		}),
		BatchesVoided: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_settlement_batches_voided_total",
			Help: "Total number of settlement batches voided",
		}),
		SettlementsPaid: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_settlements_paid_total",
			Help: "Total number of settlements marked paid",
		}),
		TransfersPerBatch: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "splitledger_settlement_batch_transfers",
			Help:    "Number of transfers in computed batches",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		SettlementDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "splitledger_settlement_compute_duration_seconds",
			Help:    "Duration of settlement batch computation",
			Buckets: prometheus.DefBuckets,
		}),

		VersionConflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_version_conflicts_total",
				Help: "Total optimistic version conflicts by aggregate",
			},
			[]string{"aggregate"},
		),
		IdempotentReplays: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_idempotent_replays_total",
				Help: "Total replayed idempotent responses by source",
			},
			[]string{"source"},
		),
		IdempotencyPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_idempotency_records_purged_total",
			Help: "Total idempotency records removed after retention",
		}),
		IntegrityFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_integrity_failures_total",
			Help: "Total writes rejected by storage integrity checks",
		}),
		CacheBreakerStates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_cache_breaker_transitions_total",
				Help: "Idempotency cache circuit breaker transitions by target state",
			},
			[]string{"state"},
		),

		ActivitiesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_activities_published_total",
			Help: "Total activity entries published from the outbox",
		}),
		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_activity_publish_errors_total",
			Help: "Total failed outbox publish attempts",
		}),

		AuthAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_auth_attempts_total",
				Help: "Total authentication attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}
