package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics groups the collectors of the betting core. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	participations *prometheus.CounterVec
	settlements    *prometheus.CounterVec
	distributed    prometheus.Counter
	ledgerEntries  *prometheus.CounterVec
	discrepancies  prometheus.Gauge
	reconcileRuns  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		participations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betting_participations_total",
			Help: "participation attempts by operation and result",
		}, []string{"operation", "result"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betting_settlements_total",
			Help: "settlement attempts by result",
		}, []string{"result"}),
		distributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betting_prize_distributed_total",
			Help: "currency paid out to winners",
		}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betting_ledger_entries_total",
			Help: "ledger entries written by type",
		}, []string{"type"}),
		discrepancies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "betting_reconciliation_discrepancies",
			Help: "discrepancies found by the last reconciliation run",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betting_reconciliation_runs_total",
			Help: "reconciliation runs by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.participations, m.settlements, m.distributed, m.ledgerEntries, m.discrepancies, m.reconcileRuns)
	return m
}

func (m *Metrics) Participation(operation, result string) {
	if m == nil {
		return
	}
	m.participations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) Settlement(result string, distributed decimal.Decimal) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(result).Inc()
	if distributed.IsPositive() {
		m.distributed.Add(distributed.InexactFloat64())
	}
}

func (m *Metrics) LedgerEntry(entryType string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(entryType).Inc()
}

func (m *Metrics) Reconciled(discrepancies int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reconcileRuns.WithLabelValues("error").Inc()
		return
	}
	m.reconcileRuns.WithLabelValues("ok").Inc()
	m.discrepancies.Set(float64(discrepancies))
}
