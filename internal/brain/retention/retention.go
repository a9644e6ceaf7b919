// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package retention

import (
	"math"
	"strings"

	"github.com/tomtom215/shortforge/internal/brain/feature"
	"github.com/tomtom215/shortforge/internal/models"
)

// Prediction is the heuristic retention estimate for a candidate. There is
// no learning loop here; the curve is a closed-form decay model used as a
// pre-generation signal.
type Prediction struct {
	// HookStrength scores the title's ability to stop the scroll, in [0,100].
	HookStrength float64 `json:"hook_strength"`

	// AvgRetentionPct is the mean of the per-second curve.
	AvgRetentionPct float64 `json:"avg_retention_pct"`

	// WatchTimePct is expected watch time as a fraction of duration.
	WatchTimePct float64 `json:"watch_time_pct"`

	// Curve is the simulated per-second retention, percent still watching.
	Curve []CurvePoint `json:"curve"`
}

// CurvePoint is one second of the simulated retention curve.
type CurvePoint struct {
	Second       int     `json:"second"`
	RetentionPct float64 `json:"retention_pct"`
}

// Config tunes the decay model.
type Config struct {
	// BaseDecayPerSecond is the per-second retention loss for a video with
	// a neutral hook.
	BaseDecayPerSecond float64 `koanf:"base_decay_per_second"`

	// MaxBoundaryDrop is the largest retention fraction lost at a segment
	// boundary when segment variety is minimal.
	MaxBoundaryDrop float64 `koanf:"max_boundary_drop"`
}

// DefaultConfig returns the shipped decay parameters.
func DefaultConfig() Config {
	return Config{
		BaseDecayPerSecond: 0.022,
		MaxBoundaryDrop:    0.08,
	}
}

// Scorer computes retention predictions. Stateless and safe for concurrent use.
type Scorer struct {
	cfg        Config
	powerWords map[string]struct{}
}

// NewScorer creates a retention scorer sharing the feature extractor's
// power-word lexicon.
func NewScorer(cfg Config, lexicon feature.Config) *Scorer {
	if cfg.BaseDecayPerSecond <= 0 {
		cfg.BaseDecayPerSecond = DefaultConfig().BaseDecayPerSecond
	}
	if cfg.MaxBoundaryDrop <= 0 {
		cfg.MaxBoundaryDrop = DefaultConfig().MaxBoundaryDrop
	}
	if len(lexicon.PowerWords) == 0 {
		lexicon = feature.DefaultConfig()
	}

	s := &Scorer{
		cfg:        cfg,
		powerWords: make(map[string]struct{}, len(lexicon.PowerWords)),
	}
	for _, w := range lexicon.PowerWords {
		s.powerWords[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Score predicts hook strength and simulates the retention curve for a
// candidate's title and script structure.
func (s *Scorer) Score(cand *models.Candidate) Prediction {
	hook := s.hookStrength(cand.Title)

	durs := cand.Script.SegmentDurations()
	total := int(math.Round(cand.Script.TotalDuration()))
	if total <= 0 {
		return Prediction{HookStrength: hook}
	}

	variety := segmentVariety(durs)
	boundaryDrop := s.cfg.MaxBoundaryDrop * (1 - variety)

	// Hook strength slows the baseline decay: a strong hook front-loads
	// commitment that carries through the video.
	decay := s.cfg.BaseDecayPerSecond * (1.5 - hook/100)

	boundaries := segmentBoundaries(durs)
	curve := make([]CurvePoint, 0, total)
	retention := 100.0
	var area float64

	for sec := 1; sec <= total; sec++ {
		retention *= 1 - decay
		if boundaries[sec] {
			retention *= 1 - boundaryDrop
		}
		curve = append(curve, CurvePoint{Second: sec, RetentionPct: retention})
		area += retention
	}

	avg := area / float64(total)
	return Prediction{
		HookStrength:    hook,
		AvgRetentionPct: avg,
		WatchTimePct:    avg / 100 * 100, // mean retention equals watch-time share for this model
		Curve:           curve,
	}
}

// hookStrength is a weighted sum over title features: power-word hits,
// digit presence, question or imperative mood, and length in the optimal
// band.
func (s *Scorer) hookStrength(title string) float64 {
	tokens := feature.Tokenize(title)

	score := 30.0

	hits := 0
	for _, tok := range tokens {
		if _, ok := s.powerWords[tok]; ok {
			hits++
		}
	}
	score += math.Min(float64(hits), 3) * 12

	if containsDigit(title) {
		score += 15
	}
	if strings.Contains(title, "?") || isImperative(tokens) {
		score += 10
	}
	if n := len(title); n >= 20 && n <= 60 {
		score += 15
	}
	if strings.HasSuffix(strings.TrimSpace(title), "!") {
		score += 5
	}

	return math.Max(0, math.Min(100, score))
}

// imperativeOpeners are verbs that open a command-mood title.
var imperativeOpeners = map[string]struct{}{
	"watch": {}, "see": {}, "stop": {}, "wait": {}, "imagine": {},
	"meet": {}, "discover": {}, "learn": {},
}

func isImperative(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	_, ok := imperativeOpeners[tokens[0]]
	return ok
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// segmentVariety maps the coefficient of variation of segment durations to
// [0,1]. Uniform segments (no variety) score 0 and take the full boundary
// drop; varied pacing scores near 1.
func segmentVariety(durs []float64) float64 {
	if len(durs) < 2 {
		return 0
	}
	var mean float64
	for _, d := range durs {
		mean += d
	}
	mean /= float64(len(durs))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, d := range durs {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(durs))
	cv := math.Sqrt(variance) / mean
	return math.Min(1, cv*2)
}

// segmentBoundaries marks the whole seconds at which a segment ends
// (excluding the final one).
func segmentBoundaries(durs []float64) map[int]bool {
	boundaries := make(map[int]bool)
	var elapsed float64
	for i, d := range durs {
		elapsed += d
		if i < len(durs)-1 {
			boundaries[int(math.Round(elapsed))] = true
		}
	}
	return boundaries
}
