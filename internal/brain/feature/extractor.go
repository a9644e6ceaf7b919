// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package feature

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/tomtom215/shortforge/internal/models"
)

// Feature names, in vector order. The predictor pins its weight vector to
// this ordering; changing it invalidates stored models (they reset on the
// next width mismatch).
const (
	TitleLengthBand      = "title_length_band"
	TitleUppercaseRatio  = "title_uppercase_ratio"
	TitleHasNumber       = "title_has_number"
	TitleExclamation     = "title_exclamation"
	TitlePowerWords      = "title_power_words"
	TitleSuperlatives    = "title_superlatives"
	TitleQuestion        = "title_question"
	TopicTokenCount      = "topic_token_count"
	TopicFatigued        = "topic_fatigued"
	TopicWinnerSim       = "topic_winner_similarity"
	ScriptSegmentCount   = "script_segment_count"
	ScriptMeanSegDur     = "script_mean_segment_duration"
	ScriptSegDurVariance = "script_segment_duration_variance"
	ScriptCountdown      = "script_countdown"
	HookStrength         = "hook_strength"
	HourSin              = "hour_sin"
	HourCos              = "hour_cos"
	DayOfWeek            = "day_of_week"
	HoursSinceLastUpload = "hours_since_last_upload"
	ChannelMedianViews   = "channel_median_views_log"
	ChannelSuccessRate   = "channel_success_rate"
)

// Names returns the feature names in vector order.
func Names() []string {
	return []string{
		TitleLengthBand, TitleUppercaseRatio, TitleHasNumber, TitleExclamation,
		TitlePowerWords, TitleSuperlatives, TitleQuestion,
		TopicTokenCount, TopicFatigued, TopicWinnerSim,
		ScriptSegmentCount, ScriptMeanSegDur, ScriptSegDurVariance, ScriptCountdown,
		HookStrength,
		HourSin, HourCos, DayOfWeek, HoursSinceLastUpload,
		ChannelMedianViews, ChannelSuccessRate,
	}
}

// Width is the fixed feature vector width.
func Width() int { return len(Names()) }

// Baseline returns the neutral value per feature, in vector order. The
// cold-start vector is exactly this baseline; the predictor models outcomes
// as departures from it.
func Baseline() []float64 {
	return []float64{
		0.5, 0.2, 0, 0, // title band, uppercase, number, exclamation
		0, 0, 0, // power words, superlatives, question
		0.33, 0, 0, // topic tokens, fatigued, winner sim
		0.42, 0.5, 0.3, 0, // segments, mean dur, variance, countdown
		0.5,       // hook
		0, 0, 0.5, // hour sin/cos, day of week
		0.5,        // hours since last upload
		0.33, 0.25, // median views log, success rate
	}
}

// ChannelContext is the channel-history slice of the feature inputs,
// computed by the brain from the store before evaluation.
type ChannelContext struct {
	Now          time.Time
	LastUploadAt time.Time

	// MedianViews is the rolling median over the 30-video window.
	MedianViews float64

	// SuccessRate is the rolling fraction of videos with views >= 1.5x the
	// channel median.
	SuccessRate float64

	// HistoryCount is the number of videos with final outcomes in the
	// window. Zero history produces a cold-start snapshot.
	HistoryCount int
}

// Signals carries cross-component inputs derived before extraction so the
// extractor itself stays deterministic and side-effect free.
type Signals struct {
	Fatigued         bool
	WinnerSimilarity float64
	HookStrength     float64
}

// Config holds the closed lexicons consumed by the extractor. Loaded once
// at startup; never mutated.
type Config struct {
	PowerWords   []string `koanf:"power_words"`
	Superlatives []string `koanf:"superlatives"`
}

// DefaultConfig returns the shipped lexicons.
func DefaultConfig() Config {
	return Config{
		PowerWords: []string{
			"extreme", "deadliest", "shocking", "insane", "unbelievable",
			"secret", "terrifying", "ultimate", "craziest", "forbidden",
			"banned", "epic", "hidden", "brutal",
		},
		Superlatives: []string{"best", "worst", "most", "top", "greatest"},
	}
}

// Extractor derives fixed-width feature vectors from candidates and channel
// context. Deterministic given its inputs.
type Extractor struct {
	powerWords   map[string]struct{}
	superlatives map[string]struct{}
}

// NewExtractor builds an extractor from immutable lexicon config.
func NewExtractor(cfg Config) *Extractor {
	if len(cfg.PowerWords) == 0 {
		cfg.PowerWords = DefaultConfig().PowerWords
	}
	if len(cfg.Superlatives) == 0 {
		cfg.Superlatives = DefaultConfig().Superlatives
	}

	e := &Extractor{
		powerWords:   make(map[string]struct{}, len(cfg.PowerWords)),
		superlatives: make(map[string]struct{}, len(cfg.Superlatives)),
	}
	for _, w := range cfg.PowerWords {
		e.powerWords[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range cfg.Superlatives {
		e.superlatives[strings.ToLower(w)] = struct{}{}
	}
	return e
}

// Extract produces the frozen feature snapshot for a candidate. A channel
// with no outcome history yields the neutral baseline for the history
// features and a cold-start flag.
func (e *Extractor) Extract(cand *models.Candidate, chCtx ChannelContext, sig Signals) models.FeatureSnapshot {
	base := Baseline()
	v := make([]float64, Width())
	copy(v, base)

	title := cand.Title
	tokens := Tokenize(title)

	v[0] = lengthBand(len(title))
	v[1] = uppercaseRatio(title)
	v[2] = boolFeature(containsDigit(title))
	v[3] = boolFeature(strings.HasSuffix(strings.TrimSpace(title), "!"))
	v[4] = math.Min(float64(e.countHits(tokens, e.powerWords)), 3) / 3
	v[5] = math.Min(float64(e.countSuperlatives(tokens)), 2) / 2
	v[6] = boolFeature(strings.Contains(title, "?"))

	topicTokens := Tokenize(cand.Topic)
	v[7] = math.Min(float64(len(topicTokens)), 6) / 6
	v[8] = boolFeature(sig.Fatigued)
	v[9] = clamp01(sig.WinnerSimilarity)

	durs := cand.Script.SegmentDurations()
	v[10] = math.Min(float64(len(durs)), 12) / 12
	mean, variance := meanVariance(durs)
	v[11] = clamp01(mean / 10)
	v[12] = clamp01(variance / 9)
	v[13] = boolFeature(cand.HasCountdown())

	v[14] = clamp01(sig.HookStrength / 100)

	hour := float64(chCtx.Now.Hour())
	v[15] = math.Sin(2 * math.Pi * hour / 24)
	v[16] = math.Cos(2 * math.Pi * hour / 24)
	v[17] = float64(chCtx.Now.Weekday()) / 6

	coldStart := chCtx.HistoryCount == 0
	if !coldStart {
		if !chCtx.LastUploadAt.IsZero() {
			v[18] = clamp01(chCtx.Now.Sub(chCtx.LastUploadAt).Hours() / 24)
		}
		v[19] = clamp01(math.Log10(chCtx.MedianViews+1) / 6)
		v[20] = clamp01(chCtx.SuccessRate)
	}

	return models.FeatureSnapshot{
		Names:     Names(),
		Values:    v,
		ColdStart: coldStart,
		TakenAt:   chCtx.Now,
	}
}

// Tokenize lowercases and splits on non-alphanumeric runs.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// lengthBand scores a title length: 1.0 inside the 20-60 character band,
// tapering linearly outside it.
func lengthBand(n int) float64 {
	switch {
	case n >= 20 && n <= 60:
		return 1.0
	case n < 20:
		return clamp01(float64(n) / 20)
	default:
		return clamp01(1 - float64(n-60)/60)
	}
}

func uppercaseRatio(s string) float64 {
	var letters, upper int
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func (e *Extractor) countHits(tokens []string, set map[string]struct{}) int {
	n := 0
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			n++
		}
	}
	return n
}

// countSuperlatives counts lexicon hits plus "-est" forms.
func (e *Extractor) countSuperlatives(tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if _, ok := e.superlatives[tok]; ok {
			n++
			continue
		}
		if len(tok) > 4 && strings.HasSuffix(tok, "est") {
			n++
		}
	}
	return n
}

func meanVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return mean, variance
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
