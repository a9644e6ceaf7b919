// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package brain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/shortforge/internal/brain/bandit"
	"github.com/tomtom215/shortforge/internal/brain/feature"
	"github.com/tomtom215/shortforge/internal/brain/predictor"
	"github.com/tomtom215/shortforge/internal/brain/retention"
	"github.com/tomtom215/shortforge/internal/brain/topics"
	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/metrics"
	"github.com/tomtom215/shortforge/internal/models"
	"github.com/tomtom215/shortforge/internal/store"
)

// Composite weights over the component scores.
const (
	weightPerformance = 0.45
	weightRetention   = 0.25
	weightSimilarity  = 0.20
	weightNovelty     = 0.10
)

// neutralSimilarityBonus is used when the channel has no winning topics
// yet, so cold channels are not penalized for lacking history.
const neutralSimilarityBonus = 50

// statsWindow is the rolling outcome window for channel-relative scoring.
const statsWindow = 30

// Threshold bounds for the adaptive gate.
const (
	thresholdMin = 10
	thresholdMax = 90
)

// Verdict is the gate decision for one candidate.
type Verdict struct {
	CompositeScore float64 `json:"composite_score"`
	ShouldGenerate bool    `json:"should_generate"`
	Threshold      float64 `json:"threshold"`

	PredictedViews float64 `json:"predicted_views"`
	CILow          float64 `json:"ci_low"`
	CIHigh         float64 `json:"ci_high"`

	PerformanceScore float64 `json:"performance_score"`
	RetentionScore   float64 `json:"retention_score"`
	SimilarityBonus  float64 `json:"similarity_bonus"`
	Novelty          float64 `json:"novelty"`

	ColdStart bool `json:"cold_start"`

	Strengths       []string `json:"strengths,omitempty"`
	RiskFactors     []string `json:"risk_factors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	// Snapshot is the frozen feature vector; the daemon persists it with
	// the uploaded video so later training uses generation-time features.
	Snapshot models.FeatureSnapshot `json:"snapshot"`

	Retention retention.Prediction `json:"retention"`
}

// ChannelReport summarizes a channel's learning state for status output.
type ChannelReport struct {
	ChannelID    string            `json:"channel_id"`
	Threshold    float64           `json:"threshold"`
	Observations int               `json:"observations"`
	MedianViews  float64           `json:"median_views"`
	Bandit       bandit.Statistics `json:"bandit"`
}

// Brain is the central decision surface. It owns the per-channel learners
// (predictor, bandit, topic index), evaluates candidates against the
// adaptive gate, and fans outcome observations back into the learners.
//
// Brain is advisory: it returns decisions and never performs production
// I/O. The daemon is the only actuator.
type Brain struct {
	cfg       *config.Config
	store     store.Store
	extractor *feature.Extractor
	scorer    RetentionScorer

	mu       sync.RWMutex
	channels map[string]*channelBrain

	now func() time.Time
}

// channelBrain bundles one channel's learners and gate state. All learner
// mutation runs under mu, single-threaded per channel.
type channelBrain struct {
	mu        sync.Mutex
	predictor PerformancePredictor
	allocator VariantAllocator
	topics    TopicIndex

	threshold float64
	// window holds the blocked flag of recent evaluations, oldest first.
	window []bool
}

var _ OutcomeSink = (*Brain)(nil)

// New creates the brain. Channel learners are constructed lazily on first
// use, restoring any persisted state.
func New(cfg *config.Config, st store.Store) *Brain {
	lexicon := feature.DefaultConfig()
	return &Brain{
		cfg:       cfg,
		store:     st,
		extractor: feature.NewExtractor(lexicon),
		scorer:    retention.NewScorer(retention.Config{}, lexicon),
		channels:  make(map[string]*channelBrain),
		now:       time.Now,
	}
}

// Register installs a channel's learners explicitly, replacing lazy
// construction. Used at daemon warm boot and by tests substituting fakes.
func (b *Brain) Register(channelID string, p PerformancePredictor, a VariantAllocator, t TopicIndex) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels[channelID] = &channelBrain{
		predictor: p,
		allocator: a,
		topics:    t,
		threshold: b.cfg.Gate.ThresholdDefault,
	}
}

// forChannel returns the channel's learners, constructing and restoring
// them on first use. Restore failures are logged and start the learner
// fresh; they never block evaluation.
func (b *Brain) forChannel(ctx context.Context, channelID string) *channelBrain {
	b.mu.RLock()
	cb, ok := b.channels[channelID]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.channels[channelID]; ok {
		return cb
	}

	log := logging.Ctx(ctx)

	pstate, err := b.store.GetPredictorState(ctx, channelID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("loading predictor state failed, starting fresh")
	}

	arms, err := b.store.ListArms(ctx, channelID)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("loading bandit arms failed, starting fresh")
	}

	docs, err := b.store.ListTopicDocuments(ctx, channelID)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("loading topic documents failed, starting fresh")
	}

	ix := topics.NewIndex(topics.Config{
		FatigueUses:          b.cfg.Topics.FatigueUses,
		FatigueWindowDays:    b.cfg.Topics.FatigueWindowDays,
		FatigueOutcomeFactor: b.cfg.Topics.FatigueOutcomeFactor,
		ClusterSimilarity:    b.cfg.Topics.ClusterSimilarity,
		WinnerPercentile:     b.cfg.Topics.WinnerPercentile,
	})
	ix.Load(docs)

	cb = &channelBrain{
		predictor: predictor.NewFromState(channelID, predictor.Config{
			HalfLifeDays:             b.cfg.Predictor.HalfLifeDays,
			ColdStartMinObservations: b.cfg.Predictor.ColdStartMinObservations,
			ColdStartCIInflation:     b.cfg.Predictor.ColdStartCIInflation,
			RidgeLambda:              b.cfg.Predictor.RidgeLambda,
			LearningRate:             b.cfg.Predictor.LearningRate,
		}, pstate),
		allocator: bandit.New(bandit.Config{
			Arms:            b.cfg.Bandit.Arms,
			WarmupPulls:     b.cfg.Bandit.WarmupPulls,
			PriorAlpha:      b.cfg.Bandit.PriorAlpha,
			PriorBeta:       b.cfg.Bandit.PriorBeta,
			WarmStartWeight: b.cfg.Bandit.WarmStartWeight,
		}, arms),
		topics:    ix,
		threshold: b.cfg.Gate.ThresholdDefault,
	}
	b.channels[channelID] = cb
	return cb
}

// Evaluate runs the gate over a candidate: features, performance
// prediction, retention, topic similarity, composite score against the
// per-channel adaptive threshold. It never fails; internal errors collapse
// to an approval with the cold-start flag set so the gate cannot become a
// silent outage.
func (b *Brain) Evaluate(ctx context.Context, cand *models.Candidate) Verdict {
	log := logging.Ctx(ctx)
	channelID := cand.ChannelID
	cb := b.forChannel(ctx, channelID)

	stats := b.channelStats(ctx, channelID)

	fatigued := cb.topics.IsFatigued(cand.Topic, stats.median)
	_, winnerSim, hasWinner := cb.topics.NearestWinner(cand.Topic)

	ret := b.scorer.Score(cand)

	snap := b.extractor.Extract(cand, feature.ChannelContext{
		Now:          b.now(),
		LastUploadAt: stats.lastUploadAt,
		MedianViews:  stats.median,
		SuccessRate:  stats.successRate,
		HistoryCount: stats.historyCount,
	}, feature.Signals{
		Fatigued:         fatigued,
		WinnerSimilarity: winnerSim,
		HookStrength:     ret.HookStrength,
	})

	pred, err := cb.predictor.Predict(snap, predictor.ChannelStats{
		MedianViews:  stats.median,
		SigmaViews:   stats.sigma,
		HistoryCount: stats.historyCount,
	})
	if err != nil {
		// Model inconsistency resets the model; production proceeds rather
		// than letting a gate failure become an outage.
		log.Warn().Err(err).Str("channel_id", channelID).Msg("prediction failed, approving in cold-start mode")
		v := Verdict{
			ShouldGenerate: true,
			ColdStart:      true,
			Threshold:      cb.currentThreshold(),
			Retention:      ret,
			Snapshot:       snap,
		}
		metrics.GateEvaluations.WithLabelValues(channelID, "approved").Inc()
		return v
	}

	simBonus := float64(neutralSimilarityBonus)
	if hasWinner {
		simBonus = 100 * clamp01(winnerSim)
	}
	novelty := 100.0
	if fatigued {
		novelty = 0
	}
	retScore := 0.5*ret.HookStrength + 0.5*ret.AvgRetentionPct

	composite := weightPerformance*pred.Score +
		weightRetention*retScore +
		weightSimilarity*simBonus +
		weightNovelty*novelty

	approved, threshold := cb.applyVerdict(composite, b.cfg.Gate)

	strengths, risks := b.attributionFactors(pred.Attribution)
	if fatigued {
		risks = append(risks, "topic_fatigued")
	}

	v := Verdict{
		CompositeScore:   composite,
		ShouldGenerate:   approved,
		Threshold:        threshold,
		PredictedViews:   pred.PredictedViews,
		CILow:            pred.CILow,
		CIHigh:           pred.CIHigh,
		PerformanceScore: pred.Score,
		RetentionScore:   retScore,
		SimilarityBonus:  simBonus,
		Novelty:          novelty,
		ColdStart:        pred.ColdStart,
		Strengths:        strengths,
		RiskFactors:      risks,
		Recommendations:  cb.topics.Recommend(3, stats.median),
		Snapshot:         snap,
		Retention:        ret,
	}

	verdict := "approved"
	if !approved {
		verdict = "blocked"
		log.Info().
			Str("channel_id", channelID).
			Str("title", cand.Title).
			Float64("composite_score", composite).
			Float64("threshold", threshold).
			Strs("risk_factors", topN(risks, 3)).
			Msg("candidate blocked by gate")
	}
	metrics.GateEvaluations.WithLabelValues(channelID, verdict).Inc()
	metrics.GateCompositeScore.WithLabelValues(channelID).Observe(composite)
	metrics.GateThreshold.WithLabelValues(channelID).Set(threshold)

	return v
}

// applyVerdict compares the composite score to the adaptive threshold,
// records the result in the rolling window, and nudges the threshold when
// the block rate leaves the target band.
func (cb *channelBrain) applyVerdict(composite float64, gate config.GateConfig) (approved bool, threshold float64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	approved = composite >= cb.threshold
	threshold = cb.threshold

	cb.window = append(cb.window, !approved)
	if len(cb.window) > gate.AdaptWindow {
		cb.window = cb.window[len(cb.window)-gate.AdaptWindow:]
	}
	if len(cb.window) < gate.AdaptWindow {
		return approved, threshold
	}

	blocked := 0
	for _, v := range cb.window {
		if v {
			blocked++
		}
	}
	rate := float64(blocked) / float64(len(cb.window))
	switch {
	case rate > gate.BlockRateHigh:
		cb.threshold = math.Max(thresholdMin, cb.threshold-gate.AdaptStep)
	case rate < gate.BlockRateLow:
		cb.threshold = math.Min(thresholdMax, cb.threshold+gate.AdaptStep)
	}
	return approved, threshold
}

func (cb *channelBrain) currentThreshold() float64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.threshold
}

// attributionFactors converts per-feature contributions into named
// strengths and risks. Title-group weakness is reported in aggregate since
// individual title features rarely clear the threshold alone.
func (b *Brain) attributionFactors(attribution map[string]float64) (strengths, risks []string) {
	eps := b.cfg.Gate.AttributionEpsilon

	titleFeatures := map[string]bool{
		feature.TitleLengthBand:     true,
		feature.TitleUppercaseRatio: true,
		feature.TitleHasNumber:      true,
		feature.TitleExclamation:    true,
		feature.TitlePowerWords:     true,
		feature.TitleSuperlatives:   true,
		feature.TitleQuestion:       true,
	}

	var titleSum float64
	names := make([]string, 0, len(attribution))
	for name := range attribution {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := attribution[name]
		if titleFeatures[name] {
			titleSum += c
		}
		switch {
		case c >= eps:
			strengths = append(strengths, name)
		case c <= -eps:
			risks = append(risks, name)
		}
	}
	if titleSum <= -eps {
		risks = append(risks, "title_lexical_weak")
	}
	if titleSum >= eps {
		strengths = append(strengths, "title_lexical_strong")
	}
	return strengths, risks
}

// RecommendVariant allocates a bandit arm for the next production.
func (b *Brain) RecommendVariant(ctx context.Context, channelID string) string {
	cb := b.forChannel(ctx, channelID)
	arm := cb.allocator.Allocate()
	metrics.BanditPulls.WithLabelValues(channelID, arm).Inc()
	return arm
}

// RecommendTopics suggests up to k topics near the channel's winners,
// excluding fatigued clusters.
func (b *Brain) RecommendTopics(ctx context.Context, channelID string, k int) []string {
	cb := b.forChannel(ctx, channelID)
	stats := b.channelStats(ctx, channelID)
	return cb.topics.Recommend(k, stats.median)
}

// NoteUpload records a topic use after a successful upload and persists
// the topic document.
func (b *Brain) NoteUpload(ctx context.Context, rec *models.VideoRecord) {
	cb := b.forChannel(ctx, rec.ChannelID)
	cb.mu.Lock()
	cb.topics.Observe(rec.ChannelID, rec.Topic, rec.UploadedAt)
	cb.mu.Unlock()
	b.persistTopic(ctx, cb, rec.ChannelID, rec.Topic)
}

// IngestOutcome drives a final observation into the learners: predictor
// update, bandit reward, topic statistics. Deduplicated by the video's
// outcome state, so replaying the same checkpoint is a no-op. Learner
// failures are logged and swallowed; the video is still marked final.
func (b *Brain) IngestOutcome(ctx context.Context, out *models.Outcome) error {
	log := logging.Ctx(ctx)

	rec, err := b.store.GetVideoRecord(ctx, out.VideoID)
	if err != nil {
		return fmt.Errorf("loading video record %s: %w", out.VideoID, err)
	}
	if rec.OutcomeState != models.OutcomePending {
		log.Debug().
			Str("video_id", out.VideoID).
			Str("outcome_state", string(rec.OutcomeState)).
			Msg("outcome already ingested, skipping")
		return nil
	}

	cb := b.forChannel(ctx, rec.ChannelID)
	stats := b.channelStats(ctx, rec.ChannelID)
	reward := b.reward(out.Views, out.Engagement, stats.median)

	cb.mu.Lock()
	if err := cb.predictor.Update(rec.Snapshot, out.Views, predictor.ChannelStats{
		MedianViews:  stats.median,
		SigmaViews:   stats.sigma,
		HistoryCount: stats.historyCount,
	}); err != nil {
		log.Warn().Err(err).Str("video_id", out.VideoID).Msg("predictor update failed")
	}
	if err := cb.allocator.Update(rec.VariantArm, reward); err != nil {
		log.Warn().Err(err).Str("video_id", out.VideoID).Str("arm", rec.VariantArm).Msg("bandit update failed")
	} else {
		metrics.BanditRewards.WithLabelValues(rec.ChannelID, rec.VariantArm).Add(reward)
	}
	cb.topics.RecordOutcome(rec.ChannelID, rec.Topic, out.Views)
	cb.mu.Unlock()

	rec.FinalViews = out.Views
	rec.FinalReward = reward
	rec.OutcomeState = models.OutcomeFinal
	if err := b.store.SaveVideoRecord(ctx, rec); err != nil {
		return fmt.Errorf("saving video record %s: %w", out.VideoID, err)
	}

	b.persistLearners(ctx, cb, rec.ChannelID, rec.Topic)
	return nil
}

// persistLearners writes the channel's learning state. Failures are logged;
// in-memory state stays authoritative until the next successful write.
func (b *Brain) persistLearners(ctx context.Context, cb *channelBrain, channelID, topic string) {
	log := logging.Ctx(ctx)

	if err := b.store.SavePredictorState(ctx, cb.predictor.State()); err != nil {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("persisting predictor state failed")
	}
	for _, arm := range cb.allocator.Snapshot(channelID) {
		if err := b.store.SaveArm(ctx, arm); err != nil {
			log.Warn().Err(err).Str("channel_id", channelID).Str("arm", arm.ArmID).Msg("persisting arm failed")
		}
	}
	b.persistTopic(ctx, cb, channelID, topic)
}

func (b *Brain) persistTopic(ctx context.Context, cb *channelBrain, channelID, topic string) {
	for _, doc := range cb.topics.Documents() {
		if doc.Topic != topic {
			continue
		}
		if err := b.store.SaveTopicDocument(ctx, doc); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("channel_id", channelID).Str("topic", topic).Msg("persisting topic document failed")
		}
		return
	}
}

// Report summarizes the channel's learning state.
func (b *Brain) Report(ctx context.Context, channelID string) ChannelReport {
	cb := b.forChannel(ctx, channelID)
	stats := b.channelStats(ctx, channelID)
	return ChannelReport{
		ChannelID:    channelID,
		Threshold:    cb.currentThreshold(),
		Observations: cb.predictor.State().Observations,
		MedianViews:  stats.median,
		Bandit:       cb.allocator.Statistics(),
	}
}

// reward maps an observed outcome to a bandit reward in [0,1], relative to
// the channel median.
func (b *Brain) reward(views, engagement, median float64) float64 {
	if median <= 0 {
		median = 1
	}
	raw := (views + b.cfg.Reward.EngagementWeight*engagement) / (2 * median)
	return clamp01(raw)
}

// channelStats computes the rolling outcome summary over the most recent
// window of final videos.
type channelStats struct {
	median       float64
	sigma        float64
	successRate  float64
	historyCount int
	lastUploadAt time.Time
}

func (b *Brain) channelStats(ctx context.Context, channelID string) channelStats {
	recs, err := b.store.ListVideoRecords(ctx, channelID, time.Time{}, 0)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("channel_id", channelID).Msg("listing video records failed, using cold-start stats")
		return channelStats{}
	}
	if len(recs) == 0 {
		return channelStats{}
	}

	var stats channelStats
	stats.lastUploadAt = recs[len(recs)-1].UploadedAt

	var views []float64
	for _, rec := range recs {
		if rec.OutcomeState == models.OutcomeFinal {
			views = append(views, rec.FinalViews)
		}
	}
	if len(views) > statsWindow {
		views = views[len(views)-statsWindow:]
	}
	if len(views) == 0 {
		return stats
	}

	stats.historyCount = len(views)
	stats.median = median(views)

	var mean float64
	for _, v := range views {
		mean += v
	}
	mean /= float64(len(views))
	var variance float64
	successes := 0
	for _, v := range views {
		variance += (v - mean) * (v - mean)
		if v >= 1.5*stats.median {
			successes++
		}
	}
	stats.sigma = math.Sqrt(variance / float64(len(views)))
	stats.successRate = float64(successes) / float64(len(views))
	return stats
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func topN(xs []string, n int) []string {
	if len(xs) <= n {
		return xs
	}
	return xs[:n]
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
