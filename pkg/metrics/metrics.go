// Package metrics exposes Prometheus instrumentation for the controller.
// Every metric here is best-effort and optional; nothing in the trading
// path depends on it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionsTotal counts Strategy Engine decisions by action (enter/exit).
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_decisions_total",
		Help: "Total strategy decisions emitted, labeled by action.",
	}, []string{"action"})

	// OrdersTotal counts orders placed, labeled by venue and side.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_orders_total",
		Help: "Total orders placed, labeled by venue and side.",
	}, []string{"venue", "side"})

	// KillSwitchTripped is 1 when the kill switch is tripped, else 0.
	KillSwitchTripped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_kill_switch_tripped",
		Help: "1 if the kill switch is currently tripped, 0 otherwise.",
	})

	// OpenPositions is the current count of open delta-neutral positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_open_positions",
		Help: "Current number of open delta-neutral positions.",
	})

	// TickDuration observes wall-clock seconds spent per controller tick.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "arb_tick_duration_seconds",
		Help: "Wall-clock duration of one controller tick.",
	})

	// ReconciliationImbalance observes the absolute leg fill imbalance, in
	// base-asset units, reported for each successful dual-leg entry.
	ReconciliationImbalance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "arb_reconciliation_imbalance",
		Help: "Absolute fill imbalance between legs (base-asset units) per entry.",
	})
)

// Handler returns the standard Prometheus scrape handler, served on /metrics
// by `run` when metrics_enabled is true.
func Handler() http.Handler {
	return promhttp.Handler()
}
