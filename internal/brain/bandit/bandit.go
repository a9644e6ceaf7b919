// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package bandit

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/shortforge/internal/models"
)

// Config parameterizes a per-channel Thompson sampler.
type Config struct {
	// Arms are the variant arms available on the channel.
	Arms []string

	// WarmupPulls is the per-arm reward-update count below which
	// allocation is round-robin instead of Thompson sampling.
	WarmupPulls int

	// PriorAlpha and PriorBeta parameterize the initial Beta prior.
	PriorAlpha float64
	PriorBeta  float64

	// WarmStartWeight is the pseudo-observation mass used when an arm is
	// introduced on a channel that already has history.
	WarmStartWeight float64

	// Seed fixes the random source; 0 selects a time-based seed.
	Seed int64
}

// DefaultConfig returns the shipped sampler parameters.
func DefaultConfig() Config {
	return Config{
		Arms:            []string{"control", "strategy"},
		WarmupPulls:     5,
		PriorAlpha:      1,
		PriorBeta:       1,
		WarmStartWeight: 2,
	}
}

// arm is the in-memory posterior of one variant arm.
type arm struct {
	alpha  float64
	beta   float64
	pulls  int
	allocs int // allocation count, in-memory only, drives warmup rotation
}

// Bandit is a per-channel Thompson-sampling allocator over variant arms
// with Beta posteriors on a [0,1] reward. Safe for concurrent use.
type Bandit struct {
	mu    sync.RWMutex
	cfg   Config
	arms  map[string]*arm
	order []string

	rng   *rand.Rand
	rngMu sync.Mutex
}

// ArmStats is the reported posterior of one arm.
type ArmStats struct {
	ArmID string  `json:"arm_id"`
	Mean  float64 `json:"mean"`
	// CILow and CIHigh bound the 95% credible interval.
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`
	Pulls  int     `json:"pulls"`
	// AllocationFraction is the current Thompson allocation probability,
	// estimated by sampling.
	AllocationFraction float64 `json:"allocation_fraction"`
}

// Statistics is the full sampler report.
type Statistics struct {
	Arms []ArmStats `json:"arms"`
	// Winner is set when one arm's credible interval lower bound exceeds
	// every other arm's upper bound.
	Winner string `json:"winner,omitempty"`
}

// New creates a bandit, restoring any persisted posteriors. Persisted arms
// not in cfg.Arms are kept; cfg arms missing from persistence start at the
// prior.
func New(cfg Config, persisted []*models.VariantArm) *Bandit {
	if len(cfg.Arms) == 0 {
		cfg.Arms = DefaultConfig().Arms
	}
	if cfg.PriorAlpha <= 0 {
		cfg.PriorAlpha = 1
	}
	if cfg.PriorBeta <= 0 {
		cfg.PriorBeta = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	b := &Bandit{
		cfg:  cfg,
		arms: make(map[string]*arm),
		rng:  rand.New(rand.NewSource(seed)), //nolint:gosec // sampling, not security
	}

	for _, id := range cfg.Arms {
		b.arms[id] = &arm{alpha: cfg.PriorAlpha, beta: cfg.PriorBeta}
		b.order = append(b.order, id)
	}
	for _, p := range persisted {
		a, ok := b.arms[p.ArmID]
		if !ok {
			a = &arm{}
			b.arms[p.ArmID] = a
			b.order = append(b.order, p.ArmID)
		}
		a.alpha = p.Alpha
		a.beta = p.Beta
		a.pulls = p.Pulls
	}
	sort.Strings(b.order)
	return b
}

// AddArm introduces a new arm, warm-started with the channel-wide
// historical mean as a small pseudo-observation so it is neither crushed
// nor over-explored against established arms.
func (b *Bandit) AddArm(armID string, historicalMean float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.arms[armID]; exists {
		return
	}
	m := math.Max(0, math.Min(1, historicalMean))
	w := b.cfg.WarmStartWeight
	b.arms[armID] = &arm{
		alpha: b.cfg.PriorAlpha + w*m,
		beta:  b.cfg.PriorBeta + w*(1-m),
	}
	b.order = append(b.order, armID)
	sort.Strings(b.order)
}

// Allocate selects an arm. During warmup (any arm with fewer than
// WarmupPulls reward updates) allocation is round-robin by in-memory
// allocation count; afterwards it is Thompson sampling, drawing
// theta_i ~ Beta(alpha_i, beta_i) per arm and returning the argmax.
func (b *Bandit) Allocate() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id := b.warmupPickLocked(); id != "" {
		b.arms[id].allocs++
		return id
	}

	best := ""
	bestTheta := math.Inf(-1)
	for _, id := range b.order {
		a := b.arms[id]
		theta := b.sampleBeta(a.alpha, a.beta)
		if theta > bestTheta {
			bestTheta = theta
			best = id
		}
	}
	b.arms[best].allocs++
	return best
}

// warmupPickLocked returns the next round-robin arm while any arm is still
// short of its warmup updates, or "" once warmup is done.
func (b *Bandit) warmupPickLocked() string {
	warming := false
	for _, a := range b.arms {
		if a.pulls < b.cfg.WarmupPulls {
			warming = true
			break
		}
	}
	if !warming {
		return ""
	}
	pick := ""
	minAllocs := math.MaxInt
	for _, id := range b.order {
		if a := b.arms[id]; a.allocs < minAllocs {
			minAllocs = a.allocs
			pick = id
		}
	}
	return pick
}

// Update applies a fractional reward in [0,1] to an arm's posterior:
// alpha += reward, beta += 1 - reward. Rewards must be clipped by the
// caller; out-of-range rewards are rejected.
func (b *Bandit) Update(armID string, reward float64) error {
	if reward < 0 || reward > 1 {
		return fmt.Errorf("bandit: reward %g outside [0,1]", reward)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.arms[armID]
	if !ok {
		return fmt.Errorf("bandit: unknown arm %q", armID)
	}
	a.alpha += reward
	a.beta += 1 - reward
	a.pulls++
	return nil
}

// Statistics reports per-arm posteriors, allocation fractions (estimated
// with 1000 Thompson draws), and the winner if one is decided.
func (b *Bandit) Statistics() Statistics {
	b.mu.RLock()
	defer b.mu.RUnlock()

	const draws = 1000
	wins := make(map[string]int, len(b.order))
	for i := 0; i < draws; i++ {
		best := ""
		bestTheta := math.Inf(-1)
		for _, id := range b.order {
			a := b.arms[id]
			if theta := b.sampleBeta(a.alpha, a.beta); theta > bestTheta {
				bestTheta = theta
				best = id
			}
		}
		wins[best]++
	}

	stats := Statistics{Arms: make([]ArmStats, 0, len(b.order))}
	for _, id := range b.order {
		a := b.arms[id]
		mean := a.alpha / (a.alpha + a.beta)
		sd := math.Sqrt(a.alpha * a.beta / ((a.alpha + a.beta) * (a.alpha + a.beta) * (a.alpha + a.beta + 1)))
		stats.Arms = append(stats.Arms, ArmStats{
			ArmID:              id,
			Mean:               mean,
			CILow:              math.Max(0, mean-1.96*sd),
			CIHigh:             math.Min(1, mean+1.96*sd),
			Pulls:              a.pulls,
			AllocationFraction: float64(wins[id]) / draws,
		})
	}

	stats.Winner = declareWinner(stats.Arms)
	return stats
}

// declareWinner returns the arm whose credible interval lower bound
// exceeds every other arm's upper bound, or "".
func declareWinner(arms []ArmStats) string {
	for _, cand := range arms {
		dominates := true
		for _, other := range arms {
			if other.ArmID == cand.ArmID {
				continue
			}
			if cand.CILow <= other.CIHigh {
				dominates = false
				break
			}
		}
		if dominates && len(arms) > 1 {
			return cand.ArmID
		}
	}
	return ""
}

// Snapshot exports the posteriors for persistence.
func (b *Bandit) Snapshot(channelID string) []*models.VariantArm {
	b.mu.RLock()
	defer b.mu.RUnlock()
	now := time.Now().UTC()
	out := make([]*models.VariantArm, 0, len(b.order))
	for _, id := range b.order {
		a := b.arms[id]
		out = append(out, &models.VariantArm{
			ChannelID: channelID,
			ArmID:     id,
			Alpha:     a.alpha,
			Beta:      a.beta,
			Pulls:     a.pulls,
			UpdatedAt: now,
		})
	}
	return out
}

// sampleBeta draws from Beta(a, b) via two Gamma draws.
func (b *Bandit) sampleBeta(alpha, beta float64) float64 {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	x := sampleGamma(b.rng, alpha)
	y := sampleGamma(b.rng, beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws from Gamma(shape, 1) using Marsaglia-Tsang, with the
// boost transform for shape < 1.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape <= 0 {
		return 0
	}
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
