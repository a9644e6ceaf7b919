// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package predictor

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/shortforge/internal/brain/feature"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/metrics"
	"github.com/tomtom215/shortforge/internal/models"
)

// ErrFeatureMismatch reports a width disagreement between an incoming
// feature vector and the stored weights. The model has already been reset
// by the time the error is returned.
var ErrFeatureMismatch = errors.New("predictor: feature vector width mismatch")

// Config controls the online learner.
type Config struct {
	// HalfLifeDays decays learned weight departures toward the prior.
	HalfLifeDays float64 `koanf:"half_life_days"`

	// ColdStartMinObservations is the count below which predictions run on
	// the prior alone with an inflated confidence interval.
	ColdStartMinObservations int `koanf:"cold_start_min_observations"`

	// ColdStartCIInflation multiplies the interval width during cold start.
	ColdStartCIInflation float64 `koanf:"cold_start_ci_inflation"`

	// RidgeLambda pulls weights toward the prior on every update.
	RidgeLambda float64 `koanf:"ridge_lambda"`

	// LearningRate is the online gradient step size.
	LearningRate float64 `koanf:"learning_rate"`
}

// DefaultConfig returns the shipped learner parameters.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays:             60,
		ColdStartMinObservations: 10,
		ColdStartCIInflation:     2.0,
		RidgeLambda:              0.01,
		LearningRate:             0.05,
	}
}

// ChannelStats is the rolling channel summary a prediction is made
// relative to.
type ChannelStats struct {
	// MedianViews is the rolling median over the outcome window.
	MedianViews float64

	// SigmaViews is the rolling standard deviation of views.
	SigmaViews float64

	// HistoryCount is the number of final outcomes in the window.
	HistoryCount int
}

// Prediction is the output of one predict call.
type Prediction struct {
	// Score is the channel-relative percentile score in [0,100].
	Score float64 `json:"score"`

	PredictedViews float64 `json:"predicted_views"`

	// CILow and CIHigh bound the 95% interval on predicted views.
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`

	ColdStart bool `json:"cold_start"`

	// Attribution maps feature name to its signed contribution to the
	// log-relative prediction.
	Attribution map[string]float64 `json:"attribution"`
}

// priorWeights are the global per-feature priors in log-relative space.
// A learned model decays back toward these with the configured half-life.
func priorWeights() map[string]float64 {
	return map[string]float64{
		feature.TitleLengthBand:     0.30,
		feature.TitleUppercaseRatio: 0.20,
		feature.TitleHasNumber:      0.25,
		feature.TitleExclamation:    0.15,
		feature.TitlePowerWords:     0.50,
		feature.TitleSuperlatives:   0.20,
		feature.TitleQuestion:       0.05,
		feature.TopicFatigued:       -0.50,
		feature.TopicWinnerSim:      0.40,
		feature.ScriptCountdown:     0.20,
		feature.HookStrength:        0.60,
		feature.ChannelSuccessRate:  0.30,
	}
}

// maxLogDeparture bounds the log-relative prediction so a runaway weight
// cannot predict absurd multiples of the channel median.
const maxLogDeparture = 2.5

// residualDecay is the EMA coefficient for the running squared-error
// estimate.
const residualDecay = 0.9

// Predictor is a per-channel online linear model over departures from the
// neutral feature baseline. Safe for concurrent use.
type Predictor struct {
	mu  sync.RWMutex
	cfg Config

	channelID string
	names     []string
	baseline  []float64
	prior     []float64
	weights   []float64

	observations int
	residualVar  float64
	updatedAt    time.Time

	now func() time.Time
}

// New creates a predictor at the global prior for the given channel.
func New(channelID string, cfg Config) *Predictor {
	def := DefaultConfig()
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = def.HalfLifeDays
	}
	if cfg.ColdStartMinObservations <= 0 {
		cfg.ColdStartMinObservations = def.ColdStartMinObservations
	}
	if cfg.ColdStartCIInflation <= 0 {
		cfg.ColdStartCIInflation = def.ColdStartCIInflation
	}
	if cfg.RidgeLambda <= 0 {
		cfg.RidgeLambda = def.RidgeLambda
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}

	p := &Predictor{
		cfg:       cfg,
		channelID: channelID,
		now:       time.Now,
	}
	p.resetLocked()
	return p
}

// NewFromState restores a persisted model. A stored width that disagrees
// with the current feature schema is discarded and the model starts at the
// prior.
func NewFromState(channelID string, cfg Config, st *models.PredictorState) *Predictor {
	p := New(channelID, cfg)
	if st == nil {
		return p
	}
	if len(st.Weights) != len(p.names) || len(st.FeatureNames) != len(p.names) {
		logging.Logger().Warn().
			Str("channel_id", channelID).
			Int("stored_width", len(st.Weights)).
			Int("schema_width", len(p.names)).
			Msg("stored predictor width disagrees with feature schema, resetting to prior")
		metrics.ModelResets.WithLabelValues(channelID, "stored_width_mismatch").Inc()
		return p
	}
	copy(p.weights, st.Weights)
	p.observations = st.Observations
	p.residualVar = st.ResidualVar
	p.updatedAt = st.UpdatedAt
	return p
}

// resetLocked restores the prior. Callers hold the write lock (or own the
// predictor exclusively, as in New).
func (p *Predictor) resetLocked() {
	p.names = feature.Names()
	p.baseline = feature.Baseline()
	prior := priorWeights()
	p.prior = make([]float64, len(p.names))
	p.weights = make([]float64, len(p.names))
	for i, name := range p.names {
		p.prior[i] = prior[name]
		p.weights[i] = prior[name]
	}
	p.observations = 0
	p.residualVar = 0.25
	p.updatedAt = time.Time{}
}

// Reset discards the learned weights on this channel.
func (p *Predictor) Reset(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	logging.Logger().Warn().
		Str("channel_id", p.channelID).
		Str("reason", reason).
		Msg("predictor model reset")
	metrics.ModelResets.WithLabelValues(p.channelID, reason).Inc()
	p.resetLocked()
}

// Predict maps a feature snapshot to a channel-relative score with a
// confidence interval and per-feature attribution. A width mismatch resets
// the model and returns ErrFeatureMismatch.
func (p *Predictor) Predict(snap models.FeatureSnapshot, stats ChannelStats) (Prediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(snap.Values) != len(p.weights) {
		p.mismatchResetLocked(len(snap.Values))
		return Prediction{}, ErrFeatureMismatch
	}

	cold := p.observations < p.cfg.ColdStartMinObservations || snap.ColdStart
	w := p.weights
	if cold {
		w = p.prior
	}

	attribution := make(map[string]float64, len(p.names))
	m := 0.0
	for i, x := range snap.Values {
		c := w[i] * (x - p.baseline[i])
		if c != 0 {
			attribution[p.names[i]] = c
		}
		m += c
	}
	m = clampDeparture(m)

	median := stats.MedianViews
	if median <= 0 {
		median = 1
	}
	predicted := median * math.Exp(m)

	halfWidth := 1.96 * math.Sqrt(p.residualVar) * (1 + 1/math.Sqrt(float64(max(p.observations, 1))))
	if cold {
		halfWidth *= p.cfg.ColdStartCIInflation
	}

	sigma := stats.SigmaViews
	if sigma <= 0 {
		sigma = math.Max(median, 1)
	}

	return Prediction{
		Score:          100 * stdNormalCDF((predicted-stats.MedianViews)/sigma),
		PredictedViews: predicted,
		CILow:          math.Max(0, median*math.Exp(m-halfWidth)),
		CIHigh:         median * math.Exp(m+halfWidth),
		ColdStart:      cold,
		Attribution:    attribution,
	}, nil
}

// Update absorbs an observed outcome with a single gradient step toward
// the log-relative target, after decaying stale weight departures toward
// the prior.
func (p *Predictor) Update(snap models.FeatureSnapshot, observedViews float64, stats ChannelStats) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(snap.Values) != len(p.weights) {
		p.mismatchResetLocked(len(snap.Values))
		return ErrFeatureMismatch
	}

	p.decayLocked()

	median := stats.MedianViews
	if median <= 0 {
		median = 1
	}
	target := math.Log(math.Max(observedViews, 0)+1) - math.Log(median+1)

	m := 0.0
	for i, x := range snap.Values {
		m += p.weights[i] * (x - p.baseline[i])
	}
	m = clampDeparture(m)

	residual := target - m
	lr := p.cfg.LearningRate
	for i, x := range snap.Values {
		grad := residual * (x - p.baseline[i])
		p.weights[i] += lr*grad - lr*p.cfg.RidgeLambda*(p.weights[i]-p.prior[i])
	}

	p.residualVar = residualDecay*p.residualVar + (1-residualDecay)*residual*residual
	p.observations++
	p.updatedAt = p.now()
	return nil
}

// decayLocked applies half-life decay of the learned departure from the
// prior, proportional to wall time since the previous update.
func (p *Predictor) decayLocked() {
	if p.updatedAt.IsZero() {
		return
	}
	elapsedDays := p.now().Sub(p.updatedAt).Hours() / 24
	if elapsedDays <= 0 {
		return
	}
	factor := math.Pow(0.5, elapsedDays/p.cfg.HalfLifeDays)
	for i := range p.weights {
		p.weights[i] = p.prior[i] + factor*(p.weights[i]-p.prior[i])
	}
}

func (p *Predictor) mismatchResetLocked(gotWidth int) {
	logging.Logger().Warn().
		Str("channel_id", p.channelID).
		Int("got_width", gotWidth).
		Int("want_width", len(p.weights)).
		Msg("feature vector width mismatch, resetting model to prior")
	metrics.ModelResets.WithLabelValues(p.channelID, "feature_mismatch").Inc()
	p.resetLocked()
}

// Observations reports the updates absorbed since the last reset.
func (p *Predictor) Observations() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.observations
}

// State exports the model for persistence.
func (p *Predictor) State() *models.PredictorState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.names))
	copy(names, p.names)
	weights := make([]float64, len(p.weights))
	copy(weights, p.weights)

	return &models.PredictorState{
		ChannelID:    p.channelID,
		FeatureNames: names,
		Weights:      weights,
		Observations: p.observations,
		ResidualVar:  p.residualVar,
		UpdatedAt:    p.updatedAt,
	}
}

func clampDeparture(m float64) float64 {
	return math.Max(-maxLogDeparture, math.Min(maxLogDeparture, m))
}

// stdNormalCDF is the standard normal cumulative distribution function.
func stdNormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
