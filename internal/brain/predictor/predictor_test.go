// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package predictor

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/shortforge/internal/brain/feature"
	"github.com/tomtom215/shortforge/internal/models"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func snapshotFor(t *testing.T, title, topic string, sig feature.Signals) models.FeatureSnapshot {
	t.Helper()
	ex := feature.NewExtractor(feature.Config{})
	cand := &models.Candidate{
		Title:     title,
		Topic:     topic,
		ChannelID: "ch1",
		Variant:   "control",
		Format:    models.FormatStandard,
		Script: models.Script{Segments: []models.Segment{
			{Text: "hook", Duration: 3},
			{Text: "body", Duration: 8},
			{Text: "payoff", Duration: 5},
		}},
	}
	return ex.Extract(cand, feature.ChannelContext{
		Now:          testNow,
		LastUploadAt: testNow.Add(-20 * time.Hour),
		MedianViews:  100,
		SuccessRate:  0.3,
		HistoryCount: 20,
	}, sig)
}

func warmStats() ChannelStats {
	return ChannelStats{MedianViews: 100, SigmaViews: 50, HistoryCount: 20}
}

// warmUp pushes the predictor past the cold-start observation floor with
// median-typical outcomes.
func warmUp(t *testing.T, p *Predictor, snap models.FeatureSnapshot) {
	t.Helper()
	for i := 0; i < DefaultConfig().ColdStartMinObservations; i++ {
		if err := p.Update(snap, 100, warmStats()); err != nil {
			t.Fatalf("warm-up Update: %v", err)
		}
	}
}

func TestPredict_StrongTitleBeatsWeak(t *testing.T) {
	strong := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85, WinnerSimilarity: 0.4})
	weak := snapshotFor(t, "thoughts", "misc", feature.Signals{HookStrength: 30})

	p := New("ch1", DefaultConfig())
	stats := warmStats()

	strongPred, err := p.Predict(strong, stats)
	if err != nil {
		t.Fatalf("Predict(strong): %v", err)
	}
	weakPred, err := p.Predict(weak, stats)
	if err != nil {
		t.Fatalf("Predict(weak): %v", err)
	}

	if strongPred.PredictedViews <= stats.MedianViews {
		t.Errorf("strong title predicted %g views, want > median %g",
			strongPred.PredictedViews, stats.MedianViews)
	}
	if weakPred.PredictedViews >= stats.MedianViews {
		t.Errorf("weak title predicted %g views, want < median %g",
			weakPred.PredictedViews, stats.MedianViews)
	}
	if strongPred.Score <= weakPred.Score {
		t.Errorf("score ordering: strong %g <= weak %g", strongPred.Score, weakPred.Score)
	}
	if strongPred.Score < 60 {
		t.Errorf("strong title score = %g, want >= 60", strongPred.Score)
	}
	if weakPred.Score > 40 {
		t.Errorf("weak title score = %g, want <= 40", weakPred.Score)
	}
}

func TestPredict_Deterministic(t *testing.T) {
	snap := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85})
	p := New("ch1", DefaultConfig())

	a, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	b, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if a.Score != b.Score || a.PredictedViews != b.PredictedViews {
		t.Errorf("repeat prediction differs: %+v vs %+v", a, b)
	}
}

func TestPredict_AttributionSigns(t *testing.T) {
	snap := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85, Fatigued: true})
	p := New("ch1", DefaultConfig())

	pred, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := pred.Attribution[feature.TitlePowerWords]; got <= 0 {
		t.Errorf("power-word attribution = %g, want positive", got)
	}
	if got := pred.Attribution[feature.TopicFatigued]; got >= 0 {
		t.Errorf("fatigue attribution = %g, want negative", got)
	}
}

func TestPredict_ColdStartWidensInterval(t *testing.T) {
	snap := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85})

	cold := New("ch1", DefaultConfig())
	coldPred, err := cold.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict(cold): %v", err)
	}
	if !coldPred.ColdStart {
		t.Error("fresh model did not flag cold start")
	}

	warm := New("ch1", DefaultConfig())
	warmUp(t, warm, snap)
	warmPred, err := warm.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict(warm): %v", err)
	}
	if warmPred.ColdStart {
		t.Error("warmed model still flags cold start")
	}

	coldWidth := coldPred.CIHigh - coldPred.CILow
	warmWidth := warmPred.CIHigh - warmPred.CILow
	if coldWidth <= warmWidth {
		t.Errorf("cold interval width %g <= warm width %g", coldWidth, warmWidth)
	}
}

func TestUpdate_MovesTowardObservations(t *testing.T) {
	snap := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85})
	p := New("ch1", DefaultConfig())
	warmUp(t, p, snap)

	before, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	// The channel consistently overdelivers on this kind of candidate.
	for i := 0; i < 30; i++ {
		if err := p.Update(snap, 800, warmStats()); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	after, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if after.PredictedViews <= before.PredictedViews {
		t.Errorf("prediction did not rise after high outcomes: %g -> %g",
			before.PredictedViews, after.PredictedViews)
	}
}

func TestPredict_FeatureMismatchResets(t *testing.T) {
	good := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85})
	p := New("ch1", DefaultConfig())
	warmUp(t, p, good)

	bad := models.FeatureSnapshot{
		Names:  []string{"a", "b"},
		Values: []float64{1, 2},
	}
	if _, err := p.Predict(bad, warmStats()); !errors.Is(err, ErrFeatureMismatch) {
		t.Fatalf("Predict(bad width) error = %v, want ErrFeatureMismatch", err)
	}
	if got := p.Observations(); got != 0 {
		t.Errorf("observations after reset = %d, want 0", got)
	}

	// The model recovers on the next well-formed vector, in cold start.
	pred, err := p.Predict(good, warmStats())
	if err != nil {
		t.Fatalf("Predict after reset: %v", err)
	}
	if !pred.ColdStart {
		t.Error("post-reset prediction not flagged cold start")
	}
}

func TestUpdate_HalfLifeDecay(t *testing.T) {
	snap := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85})

	cfg := DefaultConfig()
	p := New("ch1", cfg)
	clock := testNow
	p.now = func() time.Time { return clock }

	// Learn a strong upward departure from the prior.
	for i := 0; i < 30; i++ {
		if err := p.Update(snap, 800, warmStats()); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	hot, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	// Two half-lives later a single neutral update decays the departure.
	clock = clock.Add(time.Duration(2*cfg.HalfLifeDays*24) * time.Hour)
	if err := p.Update(snap, 100, warmStats()); err != nil {
		t.Fatalf("Update after gap: %v", err)
	}
	faded, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if faded.PredictedViews >= hot.PredictedViews {
		t.Errorf("prediction did not decay after long idle: %g -> %g",
			hot.PredictedViews, faded.PredictedViews)
	}
}

func TestState_RoundTrip(t *testing.T) {
	snap := snapshotFor(t, "TOP 10 DEADLIEST ANIMALS!", "dangerous predators",
		feature.Signals{HookStrength: 85})
	p := New("ch1", DefaultConfig())
	warmUp(t, p, snap)

	restored := NewFromState("ch1", DefaultConfig(), p.State())
	want, err := p.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	got, err := restored.Predict(snap, warmStats())
	if err != nil {
		t.Fatalf("Predict(restored): %v", err)
	}
	if got.Score != want.Score || got.PredictedViews != want.PredictedViews {
		t.Errorf("restored prediction %+v != original %+v", got, want)
	}
	if restored.Observations() != p.Observations() {
		t.Errorf("restored observations %d != %d", restored.Observations(), p.Observations())
	}
}

func TestNewFromState_DiscardsStaleWidth(t *testing.T) {
	p := NewFromState("ch1", DefaultConfig(), &models.PredictorState{
		ChannelID:    "ch1",
		FeatureNames: []string{"old_a", "old_b"},
		Weights:      []float64{0.1, 0.2},
		Observations: 50,
	})
	if got := p.Observations(); got != 0 {
		t.Errorf("observations = %d, want 0 after discarding stale state", got)
	}
}
