// Package observability exposes Prometheus metrics for the points engine.
// Registered via promauto; served on /metrics when enabled in config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SweepsTotal counts absence-sweep passes, including no-op passes.
var SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "studypact_sweeps_total",
	Help: "Total automatic absence sweep passes",
})

// AutoBunksTotal counts absences posted by the sweeper, per user.
var AutoBunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studypact_auto_bunks_total",
	Help: "Automatic absences recorded by the sweeper",
}, []string{"user"})

// PenaltyPointsTotal counts penalty points posted, by source.
var PenaltyPointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "studypact_penalty_points_total",
	Help: "Penalty points posted to the ledger",
}, []string{"source"}) // late_arrival, bunk, auto_bunk, late_task

// RedemptionsTotal counts successful redemptions.
var RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "studypact_redemptions_total",
	Help: "Successful point redemptions",
})

// RedeemedPointsTotal counts points spent through redemptions.
var RedeemedPointsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "studypact_redeemed_points_total",
	Help: "Points converted to payout requests",
})
