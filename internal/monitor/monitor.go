// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package monitor

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/metrics"
	"github.com/tomtom215/shortforge/internal/models"
	"github.com/tomtom215/shortforge/internal/store"
)

// Metrics is one observed platform measurement of a video.
type Metrics struct {
	Views    float64 `json:"views"`
	Likes    float64 `json:"likes"`
	Comments float64 `json:"comments"`
}

// MetricsFetcher retrieves current platform metrics for an uploaded video.
// Calls may fail; the monitor retries on its poll cadence until the
// checkpoint deadline passes.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, platformID string) (Metrics, error)
}

// Sink receives the final checkpoint observation of a video.
type Sink interface {
	IngestOutcome(ctx context.Context, out *models.Outcome) error
}

// Config controls checkpoint scheduling.
type Config struct {
	// Offsets is the ordered checkpoint schedule.
	Offsets []models.CheckpointOffset

	// AbandonAfter is the post-upload age at which a still-missing final
	// checkpoint is abandoned and the video excluded from learning.
	AbandonAfter time.Duration

	// HistoryWindow is how many past videos the health classification
	// compares against.
	HistoryWindow int

	// PollInterval is the scan cadence of the run loop.
	PollInterval time.Duration

	// FetchTimeout bounds each metrics fetch.
	FetchTimeout time.Duration
}

// DefaultConfig returns the shipped schedule.
func DefaultConfig() Config {
	return Config{
		Offsets:       models.DefaultCheckpointOffsets(),
		AbandonAfter:  48 * time.Hour,
		HistoryWindow: 50,
		PollInterval:  time.Minute,
		FetchTimeout:  30 * time.Second,
	}
}

// Monitor checkpoints recent uploads at bounded wall-clock offsets,
// classifies them against the channel's historical trajectory, records
// recovery advisories for early failures, and drives the final observation
// into the learning sink.
type Monitor struct {
	cfg     Config
	store   store.Store
	fetcher MetricsFetcher
	sink    Sink

	now func() time.Time
}

// New creates a monitor.
func New(cfg Config, st store.Store, fetcher MetricsFetcher, sink Sink) *Monitor {
	def := DefaultConfig()
	if len(cfg.Offsets) == 0 {
		cfg.Offsets = def.Offsets
	}
	if cfg.AbandonAfter <= 0 {
		cfg.AbandonAfter = def.AbandonAfter
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	return &Monitor{
		cfg:     cfg,
		store:   st,
		fetcher: fetcher,
		sink:    sink,
		now:     time.Now,
	}
}

// Serve runs the poll loop. Implements suture.Service.
func (m *Monitor) Serve(ctx context.Context) error {
	return m.Run(ctx)
}

func (m *Monitor) String() string { return "monitor" }

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick scans every channel's pending videos once and processes whatever
// checkpoints are due. Best-effort: individual failures are logged and
// retried on the next tick.
func (m *Monitor) Tick(ctx context.Context) {
	log := logging.Ctx(ctx)

	channels, err := m.store.ListChannels(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing channels failed, skipping monitor tick")
		return
	}

	// Listed from the beginning of time: a pending record older than the
	// abandon window (daemon down longer than the window, for instance)
	// must still be swept into the abandoned state, not silently skipped.
	for _, ch := range channels {
		recs, err := m.store.ListVideoRecords(ctx, ch.ID, time.Time{}, 0)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", ch.ID).Msg("listing video records failed")
			continue
		}
		for _, rec := range recs {
			if rec.OutcomeState != models.OutcomePending {
				continue
			}
			m.processVideo(ctx, rec)
		}
	}
}

// processVideo advances one pending video: fetches due checkpoints,
// abandons past-deadline finals, and drives a recorded final observation
// into the sink.
func (m *Monitor) processVideo(ctx context.Context, rec *models.VideoRecord) {
	log := logging.Ctx(ctx)
	now := m.now()

	existing, err := m.store.ListOutcomes(ctx, rec.ID)
	if err != nil {
		log.Warn().Err(err).Str("video_id", rec.ID).Msg("listing outcomes failed")
		return
	}
	recorded := make(map[models.CheckpointOffset]*models.Outcome, len(existing))
	var maxViews float64
	for _, out := range existing {
		recorded[out.Offset] = out
		maxViews = math.Max(maxViews, out.Views)
	}

	final := m.cfg.Offsets[len(m.cfg.Offsets)-1]

	// A recorded final checkpoint whose ingestion has not completed yet is
	// re-driven until the sink succeeds.
	if out, ok := recorded[final]; ok {
		if err := m.sink.IngestOutcome(ctx, out); err != nil {
			log.Warn().Err(err).Str("video_id", rec.ID).Msg("final outcome ingestion failed, will retry")
		}
		return
	}

	for i, offset := range m.cfg.Offsets {
		if _, ok := recorded[offset]; ok {
			continue
		}

		dueAt := rec.UploadedAt.Add(offset.Duration())
		if now.Before(dueAt) {
			break
		}

		deadline := m.deadlineFor(rec, i)
		if now.After(deadline) {
			if offset == final {
				m.abandon(ctx, rec)
				return
			}
			// Missed by more than the interval to the next checkpoint is
			// tolerated; the later checkpoints still run.
			continue
		}

		out, ok := m.observe(ctx, rec, offset, maxViews)
		if !ok {
			return
		}
		recorded[offset] = out
		maxViews = math.Max(maxViews, out.Views)

		if offset == final {
			if err := m.sink.IngestOutcome(ctx, out); err != nil {
				log.Warn().Err(err).Str("video_id", rec.ID).Msg("final outcome ingestion failed, will retry")
			}
			return
		}
	}
}

// deadlineFor returns the time after which checkpoint i is no longer
// attempted: the next checkpoint's due time, or upload+AbandonAfter for
// the final one.
func (m *Monitor) deadlineFor(rec *models.VideoRecord, i int) time.Time {
	if i == len(m.cfg.Offsets)-1 {
		return rec.UploadedAt.Add(m.cfg.AbandonAfter)
	}
	return rec.UploadedAt.Add(m.cfg.Offsets[i+1].Duration())
}

// observe fetches metrics for one checkpoint, clamps non-monotone view
// counts, persists the outcome, classifies health, and records an advisory
// for early failures.
func (m *Monitor) observe(ctx context.Context, rec *models.VideoRecord, offset models.CheckpointOffset, priorMax float64) (*models.Outcome, bool) {
	log := logging.Ctx(ctx)

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	obs, err := m.fetcher.FetchMetrics(fetchCtx, rec.PlatformID)
	cancel()
	if err != nil {
		metrics.CheckpointFetchErrors.WithLabelValues(offset.String()).Inc()
		log.Warn().Err(err).
			Str("video_id", rec.ID).
			Str("offset", offset.String()).
			Msg("checkpoint fetch failed, retrying next tick")
		return nil, false
	}

	views := obs.Views
	if views < priorMax {
		log.Warn().
			Str("video_id", rec.ID).
			Str("offset", offset.String()).
			Float64("reported", views).
			Float64("clamped_to", priorMax).
			Msg("non-monotone view count clamped")
		views = priorMax
	}

	out := &models.Outcome{
		VideoID:    rec.ID,
		ChannelID:  rec.ChannelID,
		Offset:     offset,
		Views:      views,
		Engagement: obs.Likes + obs.Comments,
		ObservedAt: m.now(),
	}
	if err := m.store.SaveOutcome(ctx, out); err != nil {
		log.Warn().Err(err).Str("video_id", rec.ID).Msg("saving outcome failed")
		return nil, false
	}

	health := m.classify(ctx, rec, offset, views)
	metrics.Checkpoints.WithLabelValues(offset.String(), string(health)).Inc()

	if health == models.HealthFailing && offset.Duration() <= time.Hour {
		m.advise(ctx, rec, offset)
	}
	return out, true
}

// classify compares a view count to the channel's historical trajectory at
// the same offset over the recent window: within one sigma below the
// median is on track, within two is underperforming, below that failing.
// Too little history classifies as on track.
func (m *Monitor) classify(ctx context.Context, rec *models.VideoRecord, offset models.CheckpointOffset, views float64) models.VideoHealth {
	history := m.trajectoryAt(ctx, rec, offset)
	if len(history) < 5 {
		return models.HealthOnTrack
	}

	med := median(history)
	var mean, variance float64
	for _, v := range history {
		mean += v
	}
	mean /= float64(len(history))
	for _, v := range history {
		variance += (v - mean) * (v - mean)
	}
	sigma := math.Sqrt(variance / float64(len(history)))

	switch {
	case views >= med-sigma:
		return models.HealthOnTrack
	case views >= med-2*sigma:
		return models.HealthUnderperforming
	default:
		return models.HealthFailing
	}
}

// trajectoryAt collects the channel's past view counts at the given offset.
func (m *Monitor) trajectoryAt(ctx context.Context, rec *models.VideoRecord, offset models.CheckpointOffset) []float64 {
	recs, err := m.store.ListVideoRecords(ctx, rec.ChannelID, time.Time{}, 0)
	if err != nil {
		return nil
	}
	if len(recs) > m.cfg.HistoryWindow {
		recs = recs[len(recs)-m.cfg.HistoryWindow:]
	}

	var history []float64
	for _, past := range recs {
		if past.ID == rec.ID {
			continue
		}
		outs, err := m.store.ListOutcomes(ctx, past.ID)
		if err != nil {
			continue
		}
		for _, out := range outs {
			if out.Offset == offset {
				history = append(history, out.Views)
				break
			}
		}
	}
	return history
}

// advise records a recovery advisory for a video failing within its first
// hour. Title-driven failures suggest a retitle; otherwise a paid boost.
func (m *Monitor) advise(ctx context.Context, rec *models.VideoRecord, offset models.CheckpointOffset) {
	action := models.ActionBoost
	reason := "views far below channel trajectory"
	if rec.PredictedScore < 50 {
		action = models.ActionRetitle
		reason = "weak predicted title performance and failing early checkpoints"
	}

	adv := &models.Advisory{
		VideoID:   rec.ID,
		ChannelID: rec.ChannelID,
		Offset:    offset,
		Action:    action,
		Reason:    reason,
		CreatedAt: m.now(),
	}
	if err := m.store.SaveAdvisory(ctx, adv); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("video_id", rec.ID).Msg("saving advisory failed")
		return
	}
	metrics.Advisories.WithLabelValues(string(action)).Inc()
	logging.Ctx(ctx).Info().
		Str("video_id", rec.ID).
		Str("offset", offset.String()).
		Str("action", string(action)).
		Msg("recovery advisory recorded")
}

// abandon marks a video's outcome unknown after the final checkpoint could
// not be collected within the retry budget. The video is excluded from all
// learning updates.
func (m *Monitor) abandon(ctx context.Context, rec *models.VideoRecord) {
	rec.OutcomeState = models.OutcomeUnknown
	if err := m.store.SaveVideoRecord(ctx, rec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("video_id", rec.ID).Msg("marking outcome unknown failed")
		return
	}
	metrics.OutcomesAbandoned.Inc()
	logging.Ctx(ctx).Warn().
		Str("video_id", rec.ID).
		Str("channel_id", rec.ChannelID).
		Msg("final checkpoint abandoned, outcome unknown")
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
