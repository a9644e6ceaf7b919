// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/shortforge/internal/brain"
	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/metrics"
	"github.com/tomtom215/shortforge/internal/models"
	"github.com/tomtom215/shortforge/internal/pipeline"
	"github.com/tomtom215/shortforge/internal/store"
)

// Gate is the decision surface the daemon consults before any production.
type Gate interface {
	RecommendVariant(ctx context.Context, channelID string) string
	Evaluate(ctx context.Context, cand *models.Candidate) brain.Verdict
	NoteUpload(ctx context.Context, rec *models.VideoRecord)
}

// ChannelStatus is one channel's scheduler state for status output.
type ChannelStatus struct {
	ID                string              `json:"id"`
	Theme             string              `json:"theme"`
	Format            models.VideoFormat  `json:"format"`
	State             models.ChannelState `json:"state"`
	Cadence           time.Duration       `json:"cadence"`
	LastUploadAt      time.Time           `json:"last_upload_at"`
	NextDueAt         time.Time           `json:"next_due_at"`
	InFlight          bool                `json:"in_flight"`
	ConsecutiveErrors int                 `json:"consecutive_errors"`
	LastError         string              `json:"last_error,omitempty"`
}

// Daemon drives the per-channel production loop. It is the only component
// that mutates channel activation state. No locks are held across external
// calls; per-channel mutations are serialized by the in-flight guard.
type Daemon struct {
	cfg   *config.Config
	store store.Store
	gate  Gate
	gen   pipeline.ScriptGenerator
	ren   pipeline.Renderer
	up    pipeline.Uploader

	sem   *semaphore.Weighted
	retry pipeline.Retrier

	mu       sync.Mutex
	inFlight map[string]bool
	baseCtx  context.Context

	wg  sync.WaitGroup
	now func() time.Time
}

// New wires the daemon to its collaborators.
func New(cfg *config.Config, st store.Store, gate Gate, gen pipeline.ScriptGenerator, ren pipeline.Renderer, up pipeline.Uploader) *Daemon {
	pool := cfg.Daemon.MaxConcurrentProductions
	if pool < 1 {
		pool = 1
	}
	return &Daemon{
		cfg:   cfg,
		store: st,
		gate:  gate,
		gen:   gen,
		ren:   ren,
		up:    up,
		sem:   semaphore.NewWeighted(int64(pool)),
		retry: pipeline.Retrier{
			Attempts:    cfg.Daemon.RetryAttempts,
			BackoffBase: cfg.Daemon.RetryBackoffBase,
		},
		inFlight: make(map[string]bool),
		baseCtx:  context.Background(),
		now:      time.Now,
	}
}

// Serve runs the scheduler loop until the context is cancelled. Implements
// suture.Service.
func (d *Daemon) Serve(ctx context.Context) error {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()

	interval := d.cfg.Daemon.TickInterval
	if interval <= 0 {
		interval = time.Minute
	}
	logging.Logger().Info().
		Dur("tick_interval", interval).
		Int("pool", d.cfg.Daemon.MaxConcurrentProductions).
		Msg("daemon started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			d.Tick(ctx, false)
		}
	}
}

func (d *Daemon) String() string { return "daemon" }

// Tick runs one scheduling pass. Due channels start a production each;
// ignoreCadence forces every active channel regardless of its timer.
// In-flight productions from earlier ticks are never doubled up.
//
// The caller's context governs only this scheduling pass. Productions run
// on the daemon's own context so a forced tick over the admin API outlives
// the HTTP request that triggered it; only daemon shutdown cancels them.
func (d *Daemon) Tick(ctx context.Context, ignoreCadence bool) {
	channels, err := d.store.ListChannels(ctx)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("tick: list channels")
		return
	}
	prodCtx := d.productionContext()
	now := d.now()
	for _, ch := range channels {
		if !ch.State.Producible() {
			continue
		}
		if !ignoreCadence && !ch.Due(now) {
			continue
		}
		if !d.claim(ch.ID) {
			continue
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.release(ch.ID)
			return
		}
		d.wg.Add(1)
		go func(ch *models.Channel) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			defer d.release(ch.ID)
			d.produce(prodCtx, ch)
		}(ch)
	}
}

// productionContext returns the context productions run under: the Serve
// context once the loop is running, context.Background before that.
func (d *Daemon) productionContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseCtx
}

// claim marks a channel in-flight, reporting false if it already was.
func (d *Daemon) claim(channelID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[channelID] {
		return false
	}
	d.inFlight[channelID] = true
	return true
}

func (d *Daemon) release(channelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, channelID)
}

// produce runs one full production attempt for a channel.
func (d *Daemon) produce(ctx context.Context, ch *models.Channel) {
	log := logging.Logger().With().Str("channel", ch.ID).Logger()
	started := d.now()
	defer func() {
		metrics.ProductionDuration.WithLabelValues(ch.ID).Observe(d.now().Sub(started).Seconds())
	}()

	variant := d.gate.RecommendVariant(ctx, ch.ID)
	cand, verdict, err := d.generateAndGate(ctx, ch, variant)
	if err != nil {
		d.recordFailure(ctx, ch, err)
		return
	}
	if cand == nil {
		// Blocked. Not a production error; the cadence timer is left
		// untouched so the channel retries on the next tick.
		metrics.Productions.WithLabelValues(ch.ID, "blocked").Inc()
		return
	}

	rec, err := d.renderAndUpload(ctx, ch, cand, verdict)
	if err != nil {
		d.recordFailure(ctx, ch, err)
		return
	}

	d.gate.NoteUpload(ctx, rec)
	d.recordSuccess(ctx, ch, rec)
	metrics.Productions.WithLabelValues(ch.ID, "uploaded").Inc()
	log.Info().
		Str("video", rec.ID).
		Str("platform_id", rec.PlatformID).
		Str("variant", rec.VariantArm).
		Float64("composite", rec.CompositeScore).
		Msg("video uploaded")
}

// generateAndGate drafts a candidate and runs it through the gate. A nil
// candidate with nil error means the gate blocked production. A trending
// channel whose candidate lacks a live trend falls back to standard
// generation once.
func (d *Daemon) generateAndGate(ctx context.Context, ch *models.Channel, variant string) (*models.Candidate, brain.Verdict, error) {
	cand, err := d.generate(ctx, ch, variant)
	if err != nil {
		return nil, brain.Verdict{}, fmt.Errorf("generate: %w", err)
	}

	if cand.TrendMissing() {
		logging.Logger().Info().
			Str("channel", ch.ID).
			Msg("no live trend, falling back to standard generation")
		fallback := *ch
		fallback.Format = models.FormatStandard
		cand, err = d.generate(ctx, &fallback, variant)
		if err != nil {
			return nil, brain.Verdict{}, fmt.Errorf("generate fallback: %w", err)
		}
	}

	verdict := d.gate.Evaluate(ctx, cand)
	if !verdict.ShouldGenerate {
		return nil, verdict, nil
	}
	return cand, verdict, nil
}

func (d *Daemon) generate(ctx context.Context, ch *models.Channel, variant string) (*models.Candidate, error) {
	var cand *models.Candidate
	err := d.retry.Do(ctx, "generate", func(ctx context.Context) error {
		var err error
		cand, err = d.gen.Generate(ctx, ch, variant)
		return err
	})
	return cand, err
}

// renderAndUpload produces the video file, publishes it, and persists the
// record. Nothing is persisted until the upload succeeds; retried uploads
// reuse one idempotency key so a slow success cannot double-publish.
func (d *Daemon) renderAndUpload(ctx context.Context, ch *models.Channel, cand *models.Candidate, verdict brain.Verdict) (*models.VideoRecord, error) {
	var filePath string
	err := d.retry.Do(ctx, "render", func(ctx context.Context) error {
		var err error
		filePath, err = d.ren.Render(ctx, cand)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	meta := pipeline.UploadMetadata{
		Title:          cand.Title,
		Topic:          cand.Topic,
		ChannelID:      ch.ID,
		IdempotencyKey: uuid.NewString(),
	}
	var platformID string
	err = d.retry.Do(ctx, "upload", func(ctx context.Context) error {
		var err error
		platformID, err = d.up.Upload(ctx, filePath, meta)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	rec := &models.VideoRecord{
		ID:             uuid.NewString(),
		ChannelID:      ch.ID,
		Title:          cand.Title,
		Topic:          cand.Topic,
		Format:         cand.Format,
		PlatformID:     platformID,
		UploadedAt:     d.now().UTC(),
		VariantArm:     cand.Variant,
		PredictedScore: verdict.PerformanceScore,
		PredictedViews: verdict.PredictedViews,
		Confidence:     verdict.CIHigh - verdict.CILow,
		CompositeScore: verdict.CompositeScore,
		Snapshot:       verdict.Snapshot,
		OutcomeState:   models.OutcomePending,
	}
	if err := d.store.SaveVideoRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}
	return rec, nil
}

// recordSuccess resets the error counter and advances the cadence timer.
func (d *Daemon) recordSuccess(ctx context.Context, ch *models.Channel, rec *models.VideoRecord) {
	fresh := d.freshChannel(ctx, ch)
	fresh.LastUploadAt = rec.UploadedAt
	fresh.ConsecutiveErrors = 0
	fresh.LastError = ""
	fresh.UpdatedAt = d.now().UTC()
	if err := d.store.SaveChannel(ctx, fresh); err != nil {
		logging.Logger().Error().Err(err).Str("channel", ch.ID).Msg("persist channel after upload")
	}
}

// recordFailure bumps the consecutive error counter and parks the channel
// once the budget is exhausted. A production cut short by shutdown is not a
// channel fault and leaves the counter alone.
func (d *Daemon) recordFailure(ctx context.Context, ch *models.Channel, prodErr error) {
	if ctx.Err() != nil || errors.Is(prodErr, context.Canceled) {
		metrics.Productions.WithLabelValues(ch.ID, "interrupted").Inc()
		logging.Logger().Info().
			Str("channel", ch.ID).
			Err(prodErr).
			Msg("production interrupted by shutdown")
		return
	}
	metrics.Productions.WithLabelValues(ch.ID, "failed").Inc()

	fresh := d.freshChannel(ctx, ch)
	fresh.ConsecutiveErrors++
	fresh.LastError = prodErr.Error()
	fresh.UpdatedAt = d.now().UTC()

	maxErrors := d.cfg.Daemon.MaxConsecutiveErrors
	if maxErrors > 0 && fresh.ConsecutiveErrors >= maxErrors {
		fresh.State = models.ChannelFailed
		metrics.ChannelsParked.Inc()
		logging.Logger().Error().
			Str("channel", ch.ID).
			Int("consecutive_errors", fresh.ConsecutiveErrors).
			Err(prodErr).
			Msg("channel parked after consecutive production failures")
	} else {
		logging.Logger().Warn().
			Str("channel", ch.ID).
			Int("consecutive_errors", fresh.ConsecutiveErrors).
			Err(prodErr).
			Msg("production failed")
	}
	if err := d.store.SaveChannel(ctx, fresh); err != nil {
		logging.Logger().Error().Err(err).Str("channel", ch.ID).Msg("persist channel after failure")
	}
}

// freshChannel reloads the channel so concurrent state changes (an operator
// pause during a long production) are not overwritten. Falls back to the
// in-memory copy if the reload fails.
func (d *Daemon) freshChannel(ctx context.Context, ch *models.Channel) *models.Channel {
	fresh, err := d.store.GetChannel(ctx, ch.ID)
	if err != nil {
		return ch
	}
	return fresh
}

// Pause marks a channel operator-paused. In-flight production for the
// channel runs to completion.
func (d *Daemon) Pause(ctx context.Context, channelID string) error {
	ch, err := d.store.GetChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("pause %s: %w", channelID, err)
	}
	if ch.State == models.ChannelPaused {
		return nil
	}
	if ch.State == models.ChannelActive {
		metrics.ChannelsParked.Inc()
	}
	ch.State = models.ChannelPaused
	ch.UpdatedAt = d.now().UTC()
	if err := d.store.SaveChannel(ctx, ch); err != nil {
		return fmt.Errorf("pause %s: %w", channelID, err)
	}
	logging.Logger().Info().Str("channel", channelID).Msg("channel paused")
	return nil
}

// Resume reactivates a paused or failed channel and clears its error state.
func (d *Daemon) Resume(ctx context.Context, channelID string) error {
	ch, err := d.store.GetChannel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("resume %s: %w", channelID, err)
	}
	if ch.State == models.ChannelActive {
		return nil
	}
	metrics.ChannelsParked.Dec()
	ch.State = models.ChannelActive
	ch.ConsecutiveErrors = 0
	ch.LastError = ""
	ch.UpdatedAt = d.now().UTC()
	if err := d.store.SaveChannel(ctx, ch); err != nil {
		return fmt.Errorf("resume %s: %w", channelID, err)
	}
	logging.Logger().Info().Str("channel", channelID).Msg("channel resumed")
	return nil
}

// Status reports the scheduler view of every channel.
func (d *Daemon) Status(ctx context.Context) ([]ChannelStatus, error) {
	channels, err := d.store.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ChannelStatus, 0, len(channels))
	for _, ch := range channels {
		st := ChannelStatus{
			ID:                ch.ID,
			Theme:             ch.Theme,
			Format:            ch.Format,
			State:             ch.State,
			Cadence:           ch.Cadence,
			LastUploadAt:      ch.LastUploadAt,
			InFlight:          d.inFlight[ch.ID],
			ConsecutiveErrors: ch.ConsecutiveErrors,
			LastError:         ch.LastError,
		}
		if !ch.LastUploadAt.IsZero() {
			st.NextDueAt = ch.LastUploadAt.Add(ch.Cadence)
		}
		out = append(out, st)
	}
	return out, nil
}
