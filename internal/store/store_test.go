// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/shortforge/internal/models"
)

// openStores returns each Store implementation under test.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	badgerStore, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() {
		if err := badgerStore.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	return map[string]Store{
		"memory": NewMemory(),
		"badger": badgerStore,
	}
}

func TestChannelRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ch := &models.Channel{
				ID:      "wildlife",
				Theme:   "dangerous animals",
				Format:  models.FormatRanking,
				State:   models.ChannelActive,
				Cadence: 4 * time.Hour,
			}
			if err := s.SaveChannel(ctx, ch); err != nil {
				t.Fatalf("SaveChannel() error = %v", err)
			}

			got, err := s.GetChannel(ctx, "wildlife")
			if err != nil {
				t.Fatalf("GetChannel() error = %v", err)
			}
			if got.Theme != ch.Theme || got.Format != ch.Format || got.Cadence != ch.Cadence {
				t.Errorf("GetChannel() = %+v, want %+v", got, ch)
			}

			if _, err := s.GetChannel(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetChannel(missing) error = %v, want ErrNotFound", err)
			}

			channels, err := s.ListChannels(ctx)
			if err != nil {
				t.Fatalf("ListChannels() error = %v", err)
			}
			if len(channels) != 1 {
				t.Errorf("ListChannels() returned %d channels, want 1", len(channels))
			}
		})
	}
}

func TestVideoRecordsOrderedByUploadTime(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			// Insert out of upload order; listing must return upload order.
			for _, rec := range []*models.VideoRecord{
				{ID: "v3", ChannelID: "ch1", UploadedAt: base.Add(2 * time.Hour)},
				{ID: "v1", ChannelID: "ch1", UploadedAt: base},
				{ID: "v2", ChannelID: "ch1", UploadedAt: base.Add(time.Hour)},
				{ID: "other", ChannelID: "ch2", UploadedAt: base},
			} {
				if err := s.SaveVideoRecord(ctx, rec); err != nil {
					t.Fatalf("SaveVideoRecord(%s) error = %v", rec.ID, err)
				}
			}

			recs, err := s.ListVideoRecords(ctx, "ch1", time.Time{}, 0)
			if err != nil {
				t.Fatalf("ListVideoRecords() error = %v", err)
			}
			wantOrder := []string{"v1", "v2", "v3"}
			if len(recs) != len(wantOrder) {
				t.Fatalf("ListVideoRecords() returned %d records, want %d", len(recs), len(wantOrder))
			}
			for i, want := range wantOrder {
				if recs[i].ID != want {
					t.Errorf("recs[%d].ID = %s, want %s", i, recs[i].ID, want)
				}
			}

			// since filter
			recs, err = s.ListVideoRecords(ctx, "ch1", base.Add(time.Hour), 0)
			if err != nil {
				t.Fatalf("ListVideoRecords(since) error = %v", err)
			}
			if len(recs) != 2 {
				t.Errorf("ListVideoRecords(since) returned %d records, want 2", len(recs))
			}

			// limit
			recs, err = s.ListVideoRecords(ctx, "ch1", time.Time{}, 1)
			if err != nil {
				t.Fatalf("ListVideoRecords(limit) error = %v", err)
			}
			if len(recs) != 1 || recs[0].ID != "v1" {
				t.Errorf("ListVideoRecords(limit=1) = %v, want [v1]", recs)
			}
		})
	}
}

func TestOutcomeUpsertByOffset(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := &models.Outcome{VideoID: "v1", ChannelID: "ch1", Offset: models.Checkpoint1h, Views: 50}
			if err := s.SaveOutcome(ctx, first); err != nil {
				t.Fatalf("SaveOutcome() error = %v", err)
			}
			// Same (video, offset) pair overwrites rather than duplicates.
			second := &models.Outcome{VideoID: "v1", ChannelID: "ch1", Offset: models.Checkpoint1h, Views: 60}
			if err := s.SaveOutcome(ctx, second); err != nil {
				t.Fatalf("SaveOutcome() error = %v", err)
			}
			if err := s.SaveOutcome(ctx, &models.Outcome{VideoID: "v1", ChannelID: "ch1", Offset: models.Checkpoint15m, Views: 10}); err != nil {
				t.Fatalf("SaveOutcome() error = %v", err)
			}

			outs, err := s.ListOutcomes(ctx, "v1")
			if err != nil {
				t.Fatalf("ListOutcomes() error = %v", err)
			}
			if len(outs) != 2 {
				t.Fatalf("ListOutcomes() returned %d outcomes, want 2", len(outs))
			}
			if outs[0].Offset != models.Checkpoint15m {
				t.Errorf("outs[0].Offset = %s, want 15m first (offset order)", outs[0].Offset)
			}
			if outs[1].Views != 60 {
				t.Errorf("outs[1].Views = %g, want 60 (overwrite)", outs[1].Views)
			}
		})
	}
}

func TestArmAndPredictorState(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			arm := &models.VariantArm{ChannelID: "ch1", ArmID: "strategy", Alpha: 3.5, Beta: 1.5, Pulls: 4}
			if err := s.SaveArm(ctx, arm); err != nil {
				t.Fatalf("SaveArm() error = %v", err)
			}
			arms, err := s.ListArms(ctx, "ch1")
			if err != nil {
				t.Fatalf("ListArms() error = %v", err)
			}
			if len(arms) != 1 || arms[0].Alpha != 3.5 {
				t.Errorf("ListArms() = %+v, want one arm with Alpha=3.5", arms)
			}

			st := &models.PredictorState{
				ChannelID:    "ch1",
				FeatureNames: []string{"a", "b"},
				Weights:      []float64{0.1, -0.2},
				Observations: 7,
				ResidualVar:  0.3,
			}
			if err := s.SavePredictorState(ctx, st); err != nil {
				t.Fatalf("SavePredictorState() error = %v", err)
			}
			got, err := s.GetPredictorState(ctx, "ch1")
			if err != nil {
				t.Fatalf("GetPredictorState() error = %v", err)
			}
			if got.Observations != 7 || len(got.Weights) != 2 {
				t.Errorf("GetPredictorState() = %+v, want %+v", got, st)
			}
		})
	}
}

func TestTopicDocumentsAndAdvisories(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			doc := &models.TopicDocument{
				ChannelID: "ch1",
				Topic:     "desert landscapes / dunes",
				Outcomes:  []float64{20, 15, 30},
			}
			if err := s.SaveTopicDocument(ctx, doc); err != nil {
				t.Fatalf("SaveTopicDocument() error = %v", err)
			}
			got, err := s.GetTopicDocument(ctx, "ch1", "desert landscapes / dunes")
			if err != nil {
				t.Fatalf("GetTopicDocument() error = %v", err)
			}
			if len(got.Outcomes) != 3 {
				t.Errorf("GetTopicDocument().Outcomes = %v, want 3 entries", got.Outcomes)
			}

			adv := &models.Advisory{
				VideoID:   "v1",
				ChannelID: "ch1",
				Offset:    models.Checkpoint1h,
				Action:    models.ActionRetitle,
				Reason:    "failing at 1h",
				CreatedAt: time.Now().UTC(),
			}
			if err := s.SaveAdvisory(ctx, adv); err != nil {
				t.Fatalf("SaveAdvisory() error = %v", err)
			}
			advs, err := s.ListAdvisories(ctx, "ch1", 10)
			if err != nil {
				t.Fatalf("ListAdvisories() error = %v", err)
			}
			if len(advs) != 1 || advs[0].Action != models.ActionRetitle {
				t.Errorf("ListAdvisories() = %+v, want one retitle advisory", advs)
			}
		})
	}
}
