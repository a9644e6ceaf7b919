// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package bandit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tomtom215/shortforge/internal/models"
)

func newTestBandit(t *testing.T, cfg Config, persisted []*models.VariantArm) *Bandit {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	return New(cfg, persisted)
}

func TestAllocate_WarmupRoundRobin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupPulls = 3
	b := newTestBandit(t, cfg, nil)

	counts := map[string]int{}
	for i := 0; i < 10; i++ {
		counts[b.Allocate()]++
	}
	if counts["control"] != 5 || counts["strategy"] != 5 {
		t.Errorf("warmup allocation = %v, want 5/5 round-robin", counts)
	}
}

func TestUpdate_PosteriorAccounting(t *testing.T) {
	cfg := DefaultConfig()
	b := newTestBandit(t, cfg, nil)

	rewards := []float64{1, 0, 0.5, 0.25, 1}
	for _, r := range rewards {
		if err := b.Update("control", r); err != nil {
			t.Fatalf("Update(%g) error: %v", r, err)
		}
	}

	var got *models.VariantArm
	for _, a := range b.Snapshot("ch1") {
		if a.ArmID == "control" {
			got = a
		}
	}
	if got == nil {
		t.Fatal("control arm missing from snapshot")
	}
	if got.Pulls != len(rewards) {
		t.Errorf("pulls = %d, want %d", got.Pulls, len(rewards))
	}
	// Each update adds exactly one unit of mass split between alpha and beta.
	mass := (got.Alpha - cfg.PriorAlpha) + (got.Beta - cfg.PriorBeta)
	if math.Abs(mass-float64(len(rewards))) > 1e-9 {
		t.Errorf("posterior mass = %g, want %d", mass, len(rewards))
	}
	wantAlpha := cfg.PriorAlpha + 2.75
	if math.Abs(got.Alpha-wantAlpha) > 1e-9 {
		t.Errorf("alpha = %g, want %g", got.Alpha, wantAlpha)
	}
	if got.ChannelID != "ch1" {
		t.Errorf("channel id = %q, want ch1", got.ChannelID)
	}
}

func TestUpdate_RejectsInvalid(t *testing.T) {
	b := newTestBandit(t, DefaultConfig(), nil)

	if err := b.Update("control", 1.2); err == nil {
		t.Error("reward above 1 accepted, want error")
	}
	if err := b.Update("control", -0.1); err == nil {
		t.Error("negative reward accepted, want error")
	}
	if err := b.Update("nonexistent", 0.5); err == nil {
		t.Error("unknown arm accepted, want error")
	}
}

func TestAllocate_ConvergesOnBetterArm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmupPulls = 5
	b := newTestBandit(t, cfg, nil)

	trueMean := map[string]float64{"control": 0.3, "strategy": 0.6}
	sim := rand.New(rand.NewSource(7)) //nolint:gosec

	const rounds = 400
	lastHundred := 0
	for i := 0; i < rounds; i++ {
		id := b.Allocate()
		if i >= rounds-100 && id == "strategy" {
			lastHundred++
		}
		reward := 0.0
		if sim.Float64() < trueMean[id] {
			reward = 1
		}
		if err := b.Update(id, reward); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	if lastHundred < 70 {
		t.Errorf("better arm got %d of last 100 allocations, want >= 70", lastHundred)
	}

	stats := b.Statistics()
	var control, strategy ArmStats
	for _, a := range stats.Arms {
		switch a.ArmID {
		case "control":
			control = a
		case "strategy":
			strategy = a
		}
	}
	if strategy.Pulls <= control.Pulls {
		t.Errorf("strategy pulls %d <= control pulls %d after training", strategy.Pulls, control.Pulls)
	}
	if strategy.AllocationFraction < 0.7 {
		t.Errorf("strategy allocation fraction = %g, want >= 0.7", strategy.AllocationFraction)
	}
}

func TestStatistics_WinnerDeclaration(t *testing.T) {
	tests := []struct {
		name      string
		persisted []*models.VariantArm
		want      string
	}{
		{
			name: "separated posteriors",
			persisted: []*models.VariantArm{
				{ArmID: "control", Alpha: 30, Beta: 70, Pulls: 98},
				{ArmID: "strategy", Alpha: 60, Beta: 40, Pulls: 98},
			},
			want: "strategy",
		},
		{
			name: "overlapping posteriors",
			persisted: []*models.VariantArm{
				{ArmID: "control", Alpha: 5, Beta: 7, Pulls: 10},
				{ArmID: "strategy", Alpha: 7, Beta: 5, Pulls: 10},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBandit(t, DefaultConfig(), tt.persisted)
			if got := b.Statistics().Winner; got != tt.want {
				t.Errorf("winner = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatistics_CredibleIntervals(t *testing.T) {
	b := newTestBandit(t, DefaultConfig(), []*models.VariantArm{
		{ArmID: "control", Alpha: 60, Beta: 40, Pulls: 98},
	})

	var got ArmStats
	for _, a := range b.Statistics().Arms {
		if a.ArmID == "control" {
			got = a
		}
	}
	if math.Abs(got.Mean-0.6) > 1e-9 {
		t.Errorf("mean = %g, want 0.6", got.Mean)
	}
	if got.CILow >= got.Mean || got.CIHigh <= got.Mean {
		t.Errorf("interval [%g, %g] does not bracket mean %g", got.CILow, got.CIHigh, got.Mean)
	}
	if got.CIHigh-got.CILow > 0.25 {
		t.Errorf("interval width %g too wide for 100 observations", got.CIHigh-got.CILow)
	}
}

func TestAddArm_WarmStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmStartWeight = 2
	b := newTestBandit(t, cfg, nil)

	b.AddArm("challenger", 0.7)
	b.AddArm("challenger", 0.1) // duplicate add is a no-op

	var got *models.VariantArm
	for _, a := range b.Snapshot("ch1") {
		if a.ArmID == "challenger" {
			got = a
		}
	}
	if got == nil {
		t.Fatal("challenger arm missing")
	}
	if math.Abs(got.Alpha-2.4) > 1e-9 || math.Abs(got.Beta-1.6) > 1e-9 {
		t.Errorf("warm-started posterior = Beta(%g, %g), want Beta(2.4, 1.6)", got.Alpha, got.Beta)
	}
	if got.Pulls != 0 {
		t.Errorf("pulls = %d, want 0 for a fresh arm", got.Pulls)
	}
}

func TestSnapshot_RestoresPosteriors(t *testing.T) {
	b := newTestBandit(t, DefaultConfig(), nil)
	for i := 0; i < 8; i++ {
		if err := b.Update("strategy", 0.75); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	restored := newTestBandit(t, DefaultConfig(), b.Snapshot("ch1"))
	before := b.Statistics()
	after := restored.Statistics()
	for i := range before.Arms {
		if before.Arms[i].Mean != after.Arms[i].Mean || before.Arms[i].Pulls != after.Arms[i].Pulls {
			t.Errorf("arm %s changed across restore: %+v vs %+v",
				before.Arms[i].ArmID, before.Arms[i], after.Arms[i])
		}
	}
}
