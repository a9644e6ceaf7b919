// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gate metrics
	GateEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_gate_evaluations_total",
			Help: "Total gate evaluations by channel and verdict",
		},
		[]string{"channel", "verdict"}, // verdict: approved, blocked
	)

	GateCompositeScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_gate_composite_score",
			Help:    "Distribution of composite gate scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0..100
		},
		[]string{"channel"},
	)

	GateThreshold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shortforge_gate_threshold",
			Help: "Current adaptive gate threshold per channel",
		},
		[]string{"channel"},
	)

	// Bandit metrics
	BanditPulls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_bandit_pulls_total",
			Help: "Total bandit arm allocations by channel and arm",
		},
		[]string{"channel", "arm"},
	)

	BanditRewards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_bandit_reward_sum",
			Help: "Accumulated reward mass per channel and arm",
		},
		[]string{"channel", "arm"},
	)

	// Production metrics
	Productions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_productions_total",
			Help: "Production attempts by channel and result",
		},
		[]string{"channel", "result"}, // result: uploaded, blocked, failed
	)

	ProductionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_production_duration_seconds",
			Help:    "End-to-end duration of one production attempt",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"channel"},
	)

	ChannelsParked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortforge_channels_parked",
			Help: "Number of channels currently paused or failed",
		},
	)

	// Monitor metrics
	Checkpoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_checkpoints_total",
			Help: "Checkpoint observations by offset and health class",
		},
		[]string{"offset", "health"},
	)

	CheckpointFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_checkpoint_fetch_errors_total",
			Help: "Failed metrics fetches by offset",
		},
		[]string{"offset"},
	)

	OutcomesAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortforge_outcomes_abandoned_total",
			Help: "Videos whose 24h checkpoint was abandoned (outcome unknown)",
		},
	)

	Advisories = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_advisories_total",
			Help: "Recovery advisories emitted by action",
		},
		[]string{"action"},
	)

	// Predictor metrics
	ModelResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_model_resets_total",
			Help: "Predictor model resets by channel and reason",
		},
		[]string{"channel", "reason"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shortforge_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	// Admin API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_api_requests_total",
			Help: "Admin API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
