// Package metrics exposes Prometheus gauges/counters over the engine's
// own state, grounded on the teacher's Metrics struct and its dual
// ticker periodic recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/logging"
)

// Metrics contains all Prometheus metrics the engine records.
type Metrics struct {
	ActionsByState      *prometheus.GaugeVec
	IntentsByState       *prometheus.GaugeVec
	TransactionsByState  *prometheus.GaugeVec

	ActionsCreatedTotal  *prometheus.CounterVec
	LedgerCallLatency    *prometheus.HistogramVec
	LedgerCallRejected   *prometheus.CounterVec
	ExecutorRetriesTotal prometheus.Counter
	LockContentionTotal  prometheus.Counter
	LinksByState         *prometheus.GaugeVec
}

// New initializes and registers the engine's metrics.
func New() *Metrics {
	return NewWithRegistry(nil)
}

func NewWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		ActionsByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashier_actions_by_state",
			Help: "The number of actions currently in each state",
		}, []string{"state", "type"}),
		IntentsByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashier_intents_by_state",
			Help: "The number of intents currently in each state",
		}, []string{"state"}),
		TransactionsByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashier_transactions_by_state",
			Help: "The number of transactions currently in each state",
		}, []string{"state"}),
		ActionsCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cashier_actions_created_total",
			Help: "The total number of actions created since server start",
		}, []string{"type"}),
		LedgerCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cashier_ledger_call_latency_seconds",
			Help:    "Latency of C1 ledger adapter calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		LedgerCallRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cashier_ledger_call_rejected_total",
			Help: "The total number of ledger calls rejected at the transport or ledger level",
		}, []string{"method"}),
		ExecutorRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashier_executor_retries_total",
			Help: "The total number of canister-initiated transaction retry attempts",
		}),
		LockContentionTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashier_request_lock_contention_total",
			Help: "The total number of Acquire calls that found an existing non-expired lock",
		}),
		LinksByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cashier_links_by_state",
			Help: "The number of links currently in each state",
		}, []string{"state"}),
	}
}

// RecordPeriodically runs until ctx is done, refreshing the
// state-distribution gauges on one ticker the way the teacher's
// RecordMetricsPeriodically drives its db/balance tickers.
func (m *Metrics) RecordPeriodically(done <-chan struct{}, db *gorm.DB, logger logging.Logger) {
	logger = logger.NewSystem("metrics")
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	m.updateStateGauges(db, logger)
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.updateStateGauges(db, logger)
		}
	}
}

func (m *Metrics) updateStateGauges(db *gorm.DB, logger logging.Logger) {
	m.updateActionGauges(db, logger)
	m.updateIntentGauges(db, logger)
	m.updateTransactionGauges(db, logger)
	m.updateLinkGauges(db, logger)
}

func (m *Metrics) updateActionGauges(db *gorm.DB, logger logging.Logger) {
	var rows []struct {
		State domain.State
		Type  domain.ActionType
		Count int64
	}
	if err := db.Model(&domain.Action{}).Select("state, type, count(*) as count").Group("state, type").Scan(&rows).Error; err != nil {
		logger.Warn("failed to refresh action gauges", "error", err)
		return
	}
	for _, r := range rows {
		m.ActionsByState.WithLabelValues(string(r.State), string(r.Type)).Set(float64(r.Count))
	}
}

func (m *Metrics) updateIntentGauges(db *gorm.DB, logger logging.Logger) {
	var rows []struct {
		State domain.State
		Count int64
	}
	if err := db.Model(&domain.Intent{}).Select("state, count(*) as count").Group("state").Scan(&rows).Error; err != nil {
		logger.Warn("failed to refresh intent gauges", "error", err)
		return
	}
	for _, r := range rows {
		m.IntentsByState.WithLabelValues(string(r.State)).Set(float64(r.Count))
	}
}

func (m *Metrics) updateTransactionGauges(db *gorm.DB, logger logging.Logger) {
	var rows []struct {
		State domain.State
		Count int64
	}
	if err := db.Model(&domain.Transaction{}).Select("state, count(*) as count").Group("state").Scan(&rows).Error; err != nil {
		logger.Warn("failed to refresh transaction gauges", "error", err)
		return
	}
	for _, r := range rows {
		m.TransactionsByState.WithLabelValues(string(r.State)).Set(float64(r.Count))
	}
}

func (m *Metrics) updateLinkGauges(db *gorm.DB, logger logging.Logger) {
	var rows []struct {
		State domain.LinkState
		Count int64
	}
	if err := db.Model(&domain.Link{}).Select("state, count(*) as count").Group("state").Scan(&rows).Error; err != nil {
		logger.Warn("failed to refresh link gauges", "error", err)
		return
	}
	for _, r := range rows {
		m.LinksByState.WithLabelValues(string(r.State)).Set(float64(r.Count))
	}
}
