// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package models

import (
	"time"
)

// FeatureSnapshot is the feature vector of a candidate frozen at generation
// time. It must never be re-derived from the evolved channel history; doing
// so would bias later training updates.
type FeatureSnapshot struct {
	Names     []string  `json:"names"`
	Values    []float64 `json:"values"`
	ColdStart bool      `json:"cold_start"`
	TakenAt   time.Time `json:"taken_at"`
}

// VideoRecord is a persisted, uploaded video. Immutable after upload except
// for outcome bookkeeping maintained by the monitor.
type VideoRecord struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channel_id"`
	Title     string      `json:"title"`
	Topic     string      `json:"topic"`
	Format    VideoFormat `json:"format"`

	// PlatformID is the hosting platform's video identifier.
	PlatformID string    `json:"platform_id"`
	UploadedAt time.Time `json:"uploaded_at"`

	// VariantArm is the bandit arm this video was allocated to.
	VariantArm string `json:"variant_arm"`

	// Gate decision captured at evaluation time.
	PredictedScore float64 `json:"predicted_score"`
	PredictedViews float64 `json:"predicted_views"`
	Confidence     float64 `json:"confidence"`
	CompositeScore float64 `json:"composite_score"`

	// Snapshot is the frozen feature vector used for the prediction.
	Snapshot FeatureSnapshot `json:"snapshot"`

	// FinalViews and FinalReward are filled after the 24h checkpoint.
	// OutcomeState tracks whether learning updates ran for this video.
	FinalViews   float64      `json:"final_views"`
	FinalReward  float64      `json:"final_reward"`
	OutcomeState OutcomeState `json:"outcome_state"`
}

// OutcomeState tracks a video's progress through outcome collection.
type OutcomeState string

const (
	// OutcomePending videos are still inside the checkpoint window.
	OutcomePending OutcomeState = "pending"

	// OutcomeFinal videos have a 24h observation and fed the learners.
	OutcomeFinal OutcomeState = "final"

	// OutcomeUnknown videos lost their 24h checkpoint (retried for up to
	// 48h, then abandoned). Excluded from learning updates.
	OutcomeUnknown OutcomeState = "unknown"
)

// CheckpointOffset is a bounded wall-clock offset after upload at which the
// monitor observes a video's metrics.
type CheckpointOffset time.Duration

// The checkpoint schedule, ordered.
const (
	Checkpoint15m CheckpointOffset = CheckpointOffset(15 * time.Minute)
	Checkpoint1h  CheckpointOffset = CheckpointOffset(time.Hour)
	Checkpoint6h  CheckpointOffset = CheckpointOffset(6 * time.Hour)
	Checkpoint24h CheckpointOffset = CheckpointOffset(24 * time.Hour)
)

// Duration returns the offset as a time.Duration.
func (o CheckpointOffset) Duration() time.Duration { return time.Duration(o) }

// String renders the offset in the compact form used in keys and logs.
func (o CheckpointOffset) String() string {
	d := time.Duration(o)
	if d < time.Hour {
		return d.Truncate(time.Minute).String()
	}
	return d.Truncate(time.Hour).String()
}

// DefaultCheckpointOffsets is the standard monitor schedule.
func DefaultCheckpointOffsets() []CheckpointOffset {
	return []CheckpointOffset{Checkpoint15m, Checkpoint1h, Checkpoint6h, Checkpoint24h}
}

// Outcome is one observed measurement of a video at a checkpoint offset.
// For any video, views at later offsets are >= views at earlier offsets;
// violations are clamped by the monitor with a warning.
type Outcome struct {
	VideoID    string           `json:"video_id"`
	ChannelID  string           `json:"channel_id"`
	Offset     CheckpointOffset `json:"offset"`
	Views      float64          `json:"views"`
	Engagement float64          `json:"engagement"`
	ObservedAt time.Time        `json:"observed_at"`
}

// VideoHealth classifies a video against its channel's historical
// trajectory at the same checkpoint offset.
type VideoHealth string

const (
	HealthOnTrack         VideoHealth = "on_track"
	HealthUnderperforming VideoHealth = "underperforming"
	HealthFailing         VideoHealth = "failing"
)

// AdvisoryAction is a recovery action suggested by the monitor. Execution
// is external; the monitor only records advisories.
type AdvisoryAction string

const (
	ActionRetitle AdvisoryAction = "retitle"
	ActionRethumb AdvisoryAction = "rethumb"
	ActionBoost   AdvisoryAction = "boost"
)

// Advisory is a recorded recovery suggestion for a failing video.
type Advisory struct {
	VideoID   string           `json:"video_id"`
	ChannelID string           `json:"channel_id"`
	Offset    CheckpointOffset `json:"offset"`
	Action    AdvisoryAction   `json:"action"`
	Reason    string           `json:"reason"`
	CreatedAt time.Time        `json:"created_at"`
}
