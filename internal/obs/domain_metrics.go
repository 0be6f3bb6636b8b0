package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DraftMutationsTotal counts draft mutation attempts by operation and outcome.
	DraftMutationsTotal *prometheus.CounterVec
	// OrdersSavedTotal counts orders persisted from drafts.
	OrdersSavedTotal prometheus.Counter
	// StaleTotalsTotal counts persisted totals snapshots that diverged from a fresh derivation.
	StaleTotalsTotal prometheus.Counter
	// SettlementTasksTotal counts previous-due settlement task outcomes.
	SettlementTasksTotal *prometheus.CounterVec
	// CatalogCacheHits counts catalog cache lookups by result.
	CatalogCacheHits *prometheus.CounterVec
	// RecomputeDuration tracks how long a full totals derivation takes.
	RecomputeDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DraftMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_mutations_total",
			Help:      "Count of draft mutation attempts by operation and outcome.",
		}, []string{"op", "result"})
		OrdersSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_saved_total",
			Help:      "Count of orders persisted from draft sessions.",
		})
		StaleTotalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_totals_total",
			Help:      "Count of persisted totals snapshots that no longer match a fresh derivation.",
		})
		SettlementTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_tasks_total",
			Help:      "Count of previous-due settlement task processing outcomes.",
		}, []string{"result"})
		CatalogCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_lookups_total",
			Help:      "Count of catalog cache lookups by result.",
		}, []string{"result"})
		RecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Duration of a full order totals derivation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		})

		mustRegisterCollector(reg, DraftMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DraftMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersSavedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersSavedTotal = v
			}
		})
		mustRegisterCollector(reg, StaleTotalsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StaleTotalsTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementTasksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SettlementTasksTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheHits, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheHits = v
			}
		})
		mustRegisterCollector(reg, RecomputeDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				RecomputeDuration = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
