// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package models

import (
	"time"
)

// VariantArm is the persisted posterior of one bandit arm on a channel.
// Invariant: Pulls == (Alpha - priorAlpha) + (Beta - priorBeta) in
// accumulated reward mass; both accumulators are non-negative reals since
// updates may carry fractional reward.
type VariantArm struct {
	ChannelID string  `json:"channel_id"`
	ArmID     string  `json:"arm_id"`
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	Pulls     int     `json:"pulls"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TopicDocument is one historical topic on a channel together with the
// outcomes of the videos that used it. Consumed by the topic similarity
// engine for nearest-winner lookup and fatigue detection.
type TopicDocument struct {
	ChannelID string `json:"channel_id"`
	Topic     string `json:"topic"`

	// Outcomes are channel-relative view counts of videos that used this
	// topic, in usage order.
	Outcomes []float64 `json:"outcomes"`

	// UsedAt are the upload timestamps of those uses, aligned with Outcomes
	// where an outcome exists (a use may not have an outcome yet).
	UsedAt []time.Time `json:"used_at"`

	LastUsedAt time.Time `json:"last_used_at"`
}

// UsesSince counts uses at or after the cutoff.
func (d *TopicDocument) UsesSince(cutoff time.Time) int {
	n := 0
	for _, t := range d.UsedAt {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

// LastOutcomes returns up to n most recent outcomes.
func (d *TopicDocument) LastOutcomes(n int) []float64 {
	if len(d.Outcomes) <= n {
		return d.Outcomes
	}
	return d.Outcomes[len(d.Outcomes)-n:]
}

// PredictorState is the persisted per-channel model of the performance
// predictor: learned weights plus running residual statistics. The weights
// are the only mutable numeric state of the predictor; everything else it
// consumes ships as immutable configuration.
type PredictorState struct {
	ChannelID string `json:"channel_id"`

	// FeatureNames pins the width and ordering of Weights. A mismatch with
	// an incoming vector is a model inconsistency and triggers a reset.
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`

	// Observations is the number of updates absorbed since the last reset.
	Observations int `json:"observations"`

	// ResidualVar is an exponentially decayed estimate of squared
	// prediction error in log-relative space.
	ResidualVar float64 `json:"residual_var"`

	UpdatedAt time.Time `json:"updated_at"`
}
