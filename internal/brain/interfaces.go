// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package brain

import (
	"context"
	"time"

	"github.com/tomtom215/shortforge/internal/brain/bandit"
	"github.com/tomtom215/shortforge/internal/brain/predictor"
	"github.com/tomtom215/shortforge/internal/brain/retention"
	"github.com/tomtom215/shortforge/internal/brain/topics"
	"github.com/tomtom215/shortforge/internal/models"
)

// PerformancePredictor is the per-channel online view model.
type PerformancePredictor interface {
	Predict(snap models.FeatureSnapshot, stats predictor.ChannelStats) (predictor.Prediction, error)
	Update(snap models.FeatureSnapshot, observedViews float64, stats predictor.ChannelStats) error
	State() *models.PredictorState
}

// RetentionScorer predicts hook strength and the retention curve.
type RetentionScorer interface {
	Score(cand *models.Candidate) retention.Prediction
}

// TopicIndex is the per-channel topic similarity and fatigue engine.
type TopicIndex interface {
	Load(docs []*models.TopicDocument)
	Observe(channelID, topic string, usedAt time.Time)
	RecordOutcome(channelID, topic string, views float64)
	Documents() []*models.TopicDocument
	NearestWinner(topic string) (winner string, similarity float64, ok bool)
	Recommend(k int, channelMedian float64) []string
	IsFatigued(topic string, channelMedian float64) bool
}

// VariantAllocator is the per-channel bandit over content strategies.
type VariantAllocator interface {
	Allocate() string
	Update(armID string, reward float64) error
	Statistics() bandit.Statistics
	Snapshot(channelID string) []*models.VariantArm
}

// OutcomeSink receives final checkpoint observations and fans them out to
// the learners. The monitor drives this after the last checkpoint.
type OutcomeSink interface {
	IngestOutcome(ctx context.Context, out *models.Outcome) error
}

var (
	_ PerformancePredictor = (*predictor.Predictor)(nil)
	_ RetentionScorer      = (*retention.Scorer)(nil)
	_ VariantAllocator     = (*bandit.Bandit)(nil)
	_ TopicIndex           = (*topics.Index)(nil)
)
