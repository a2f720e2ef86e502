// Package metrics holds the relayer's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal counts settled intents.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayer_settlements_total",
		Help: "Total payment intents settled successfully",
	})

	// RejectionsTotal counts rejected intents, labeled by reason and by
	// the stage that detected it (precheck vs commit).
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_rejections_total",
		Help: "Total payment intents rejected, labeled by reason and stage",
	}, []string{"reason", "stage"})

	// SettlementDuration observes end-to-end charge processing time.
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relayer_settlement_duration_seconds",
		Help:    "Latency distribution of charge execution",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// SubmissionCostTotal accumulates the relayer's own submission cost in
	// minor units. This is the relayer's cost ledger; it is independent of
	// payer balances.
	SubmissionCostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayer_submission_cost_total",
		Help: "Cumulative submission cost paid by the relayer, in minor units",
	})
)
