package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SpinsTotal tracks spin operations by result (ok, rejected, error)
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_spins_total",
			Help: "Total number of spin operations sent",
		},
		[]string{"result"},
	)

	// HPSpentTotal tracks resource units accepted by the server
	HPSpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spinner_hp_spent_total",
			Help: "Total HP spent through accepted spins",
		},
	)

	// RepairsTotal tracks repair requests by result
	RepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_repairs_total",
			Help: "Total number of repair requests",
		},
		[]string{"result"},
	)

	// RepartitionsTotal tracks how often the remaining budget was re-split
	RepartitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_repartitions_total",
			Help: "Total number of budget re-partitions",
		},
		[]string{"reason"},
	)

	// StateTransitionsTotal tracks executor state transitions
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_state_transitions_total",
			Help: "Total number of spin executor state transitions",
		},
		[]string{"to"},
	)

	// CyclesTotal tracks finished spin cycles by outcome (done, aborted)
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_cycles_total",
			Help: "Total number of finished spin cycles",
		},
		[]string{"outcome"},
	)

	// BoxesClaimedTotal tracks opened reward boxes
	BoxesClaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_boxes_total",
			Help: "Reward boxes seen by result (claimed, waiting, failed)",
		},
		[]string{"result"},
	)

	// AccountsProcessedTotal tracks per-account pass results
	AccountsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_accounts_processed_total",
			Help: "Total number of account passes by result",
		},
		[]string{"result"},
	)

	// APICallsTotal tracks API calls per endpoint and status class
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spinner_api_calls_total",
			Help: "Total number of API calls",
		},
		[]string{"endpoint", "status"},
	)

	// APILatency tracks API call latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spinner_api_latency_seconds",
			Help:    "API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// LastPassTimestamp is the unix time the last full pass finished
	LastPassTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spinner_last_pass_timestamp_seconds",
			Help: "Unix time of the last completed pass",
		},
	)

	// DBConnectionPoolUsage tracks the account store pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spinner_db_connection_pool_usage_percent",
			Help: "Percentage of open database connections in use",
		},
	)
)
