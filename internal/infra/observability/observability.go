// Package observability holds the service's Prometheus metrics.
//
// Metrics cover the loan lifecycle (transitions, rejections, latency), the
// ledger (entries appended), and the balance cache (hits/misses). Exposed
// via the /metrics endpoint when enabled in config.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Lifecycle Metrics ──────────────────────────────────────────────────────

// Transitions counts committed lifecycle transitions by kind and outcome.
var Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fiambond",
	Subsystem: "lifecycle",
	Name:      "transitions_total",
	Help:      "Loan lifecycle transitions attempted, by transition and outcome.",
}, []string{"transition", "outcome"})

// Rejections counts transitions rejected before reaching the store
// (validation, authorization, or precondition failures).
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fiambond",
	Subsystem: "lifecycle",
	Name:      "rejections_total",
	Help:      "Loan lifecycle transitions rejected by validation or preconditions.",
}, []string{"transition"})

// transitionSeconds observes commit latency per transition.
var transitionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "fiambond",
	Subsystem: "lifecycle",
	Name:      "transition_seconds",
	Help:      "Time to commit a loan transition and its ledger entries.",
	Buckets:   prometheus.DefBuckets,
}, []string{"transition"})

// TransitionTimer starts a latency observation for one transition commit.
func TransitionTimer(transition string) *prometheus.Timer {
	return prometheus.NewTimer(transitionSeconds.WithLabelValues(transition))
}

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerEntries counts appended ledger entries by type.
var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fiambond",
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Ledger entries appended, by entry type.",
}, []string{"type"})

// ─── Balance Cache Metrics ──────────────────────────────────────────────────

// BalanceCacheHits counts balance reads served from the cache.
var BalanceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fiambond",
	Subsystem: "cache",
	Name:      "balance_hits_total",
	Help:      "Balance lookups served from the cache.",
})

// BalanceCacheMisses counts balance reads that fell through to the ledger.
var BalanceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fiambond",
	Subsystem: "cache",
	Name:      "balance_misses_total",
	Help:      "Balance lookups that fell through to the ledger.",
})
