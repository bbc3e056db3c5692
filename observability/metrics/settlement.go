package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type SettlementMetrics struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	periods        prometheus.Counter
	checkerCount   prometheus.Gauge
	credits        prometheus.Counter
	creditedUnits  prometheus.Counter
	payouts        prometheus.Counter
	paidUnits      prometheus.Counter
	grants         *prometheus.CounterVec
	unlocks        prometheus.Counter
	penaltyUnits   prometheus.Counter
	releasedUnits  prometheus.Counter
	lockedBalance  prometheus.Gauge
	journalBacklog prometheus.Gauge
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the lazily registered settlement collectors.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "requests_total",
				Help:      "Ledger requests segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "request_duration_seconds",
				Help:      "Latency of ledger requests by operation.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			periods: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "periods_appended_total",
				Help:      "Checker count entries appended to the period ledger.",
			}),
			checkerCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "active_checkers",
				Help:      "Checker count of the most recently appended period.",
			}),
			credits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "checker_credits_total",
				Help:      "Individual checker credits applied by worker submissions.",
			}),
			creditedUnits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "checker_credited_units_total",
				Help:      "Reward units credited to checker balances.",
			}),
			payouts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "payouts_total",
				Help:      "Checker balances converted into locks.",
			}),
			paidUnits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "settlement",
				Name:      "payout_units_total",
				Help:      "Reward units moved from checker balances into locks.",
			}),
			grants: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "treasury",
				Name:      "grants_total",
				Help:      "Vesting grants segmented by whether they opened a new lock.",
			}, []string{"kind"}),
			unlocks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "treasury",
				Name:      "unlocks_total",
				Help:      "Locks released to their owner.",
			}),
			penaltyUnits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "treasury",
				Name:      "penalty_retained_units_total",
				Help:      "Units retained by the treasury as early unlock penalty.",
			}),
			releasedUnits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "depin",
				Subsystem: "treasury",
				Name:      "released_units_total",
				Help:      "Units transferred to owners on unlock.",
			}),
			lockedBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "depin",
				Subsystem: "treasury",
				Name:      "locked_balance",
				Help:      "Sum of outstanding locked amounts.",
			}),
			journalBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "depin",
				Subsystem: "journal",
				Name:      "last_sequence",
				Help:      "Sequence number of the most recent journal entry.",
			}),
		}
		prometheus.MustRegister(
			settlementRegistry.requests,
			settlementRegistry.latency,
			settlementRegistry.periods,
			settlementRegistry.checkerCount,
			settlementRegistry.credits,
			settlementRegistry.creditedUnits,
			settlementRegistry.payouts,
			settlementRegistry.paidUnits,
			settlementRegistry.grants,
			settlementRegistry.unlocks,
			settlementRegistry.penaltyUnits,
			settlementRegistry.releasedUnits,
			settlementRegistry.lockedBalance,
			settlementRegistry.journalBacklog,
		)
	})
	return settlementRegistry
}

// ObserveRequest records one request and its outcome label.
func (m *SettlementMetrics) ObserveRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *SettlementMetrics) ObservePeriod(checkerCount uint32) {
	if m == nil {
		return
	}
	m.periods.Inc()
	m.checkerCount.Set(float64(checkerCount))
}

func (m *SettlementMetrics) ObserveCredits(count int, reward uint16) {
	if m == nil || count == 0 {
		return
	}
	m.credits.Add(float64(count))
	m.creditedUnits.Add(float64(count) * float64(reward))
}

func (m *SettlementMetrics) ObservePayout(amount uint64) {
	if m == nil {
		return
	}
	m.payouts.Inc()
	m.paidUnits.Add(float64(amount))
}

func (m *SettlementMetrics) ObserveGrant(created bool) {
	if m == nil {
		return
	}
	kind := "topup"
	if created {
		kind = "new"
	}
	m.grants.WithLabelValues(kind).Inc()
}

func (m *SettlementMetrics) ObserveUnlock(penalty, payout uint64) {
	if m == nil {
		return
	}
	m.unlocks.Inc()
	m.penaltyUnits.Add(float64(penalty))
	m.releasedUnits.Add(float64(payout))
}

func (m *SettlementMetrics) SetLockedBalance(amount uint64) {
	if m == nil {
		return
	}
	m.lockedBalance.Set(float64(amount))
}

func (m *SettlementMetrics) SetJournalSequence(seq uint64) {
	if m == nil {
		return
	}
	m.journalBacklog.Set(float64(seq))
}
