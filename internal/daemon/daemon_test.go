// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/shortforge/internal/brain"
	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/models"
	"github.com/tomtom215/shortforge/internal/pipeline"
	"github.com/tomtom215/shortforge/internal/store"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeGate struct {
	mu      sync.Mutex
	variant string
	approve bool
	noted   []*models.VideoRecord
}

func (g *fakeGate) RecommendVariant(ctx context.Context, channelID string) string {
	return g.variant
}

func (g *fakeGate) Evaluate(ctx context.Context, cand *models.Candidate) brain.Verdict {
	return brain.Verdict{
		ShouldGenerate:   g.approve,
		CompositeScore:   55,
		Threshold:        40,
		PerformanceScore: 60,
		PredictedViews:   200,
	}
}

func (g *fakeGate) NoteUpload(ctx context.Context, rec *models.VideoRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.noted = append(g.noted, rec)
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls []models.VideoFormat
	err   error
	// delay makes Generate wait, honoring context cancellation like a real
	// HTTP collaborator call.
	delay time.Duration
	// trendMissingFirst makes the first trending call come back without a
	// live trend.
	trendMissingFirst bool
}

func (g *fakeGenerator) Generate(ctx context.Context, ch *models.Channel, variant string) (*models.Candidate, error) {
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.delay):
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, ch.Format)
	if g.err != nil {
		return nil, g.err
	}
	cand := &models.Candidate{
		Title:     "Wild Title",
		Topic:     "predators",
		ChannelID: ch.ID,
		Variant:   variant,
		Format:    ch.Format,
		Script: models.Script{Segments: []models.Segment{
			{Text: "hook", Duration: 3},
			{Text: "body", Duration: 20},
		}},
		GeneratedAt: testNow,
	}
	if ch.Format == models.FormatTrending {
		cand.Trending = &models.TrendingBody{}
		if !g.trendMissingFirst || len(g.calls) > 1 {
			cand.Trending.TrendingTopic = "live trend"
		}
	}
	return cand, nil
}

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(ctx context.Context, cand *models.Candidate) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "/tmp/render.mp4", nil
}

type fakeUploader struct {
	mu   sync.Mutex
	err  error
	keys []string
}

func (u *fakeUploader) Upload(ctx context.Context, filePath string, meta pipeline.UploadMetadata) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.keys = append(u.keys, meta.IdempotencyKey)
	return "yt-upload-1", nil
}

type harness struct {
	daemon *Daemon
	store  store.Store
	gate   *fakeGate
	gen    *fakeGenerator
	ren    *fakeRenderer
	up     *fakeUploader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Daemon.RetryAttempts = 1
	cfg.Daemon.RetryBackoffBase = time.Millisecond
	st := store.NewMemory()
	t.Cleanup(func() { st.Close() })

	gate := &fakeGate{variant: "control", approve: true}
	gen := &fakeGenerator{}
	ren := &fakeRenderer{}
	up := &fakeUploader{}
	d := New(cfg, st, gate, gen, ren, up)
	d.now = func() time.Time { return testNow }
	return &harness{daemon: d, store: st, gate: gate, gen: gen, ren: ren, up: up}
}

func (h *harness) seedChannel(t *testing.T, id string, state models.ChannelState, lastUpload time.Time) {
	t.Helper()
	ch := &models.Channel{
		ID:           id,
		Theme:        "wildlife facts",
		Format:       models.FormatStandard,
		State:        state,
		Cadence:      4 * time.Hour,
		LastUploadAt: lastUpload,
	}
	if err := h.store.SaveChannel(context.Background(), ch); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
}

func (h *harness) tick(ctx context.Context, force bool) {
	h.daemon.Tick(ctx, force)
	h.daemon.wg.Wait()
}

func TestTick_ProducesForDueChannel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	h.tick(ctx, false)

	recs, err := h.store.ListVideoRecords(ctx, "wildlife", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListVideoRecords() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.PlatformID != "yt-upload-1" {
		t.Errorf("PlatformID = %q, want yt-upload-1", rec.PlatformID)
	}
	if rec.OutcomeState != models.OutcomePending {
		t.Errorf("OutcomeState = %q, want pending", rec.OutcomeState)
	}
	if rec.VariantArm != "control" {
		t.Errorf("VariantArm = %q, want control", rec.VariantArm)
	}
	if len(h.gate.noted) != 1 {
		t.Errorf("NoteUpload calls = %d, want 1", len(h.gate.noted))
	}
	ch, err := h.store.GetChannel(ctx, "wildlife")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if !ch.LastUploadAt.Equal(testNow) {
		t.Errorf("LastUploadAt = %v, want %v", ch.LastUploadAt, testNow)
	}
	if len(h.up.keys) != 1 || h.up.keys[0] == "" {
		t.Errorf("upload idempotency keys = %v, want one non-empty key", h.up.keys)
	}
}

func TestTick_RespectsCadence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, testNow.Add(-time.Hour))

	h.tick(ctx, false)

	if got := len(h.gen.calls); got != 0 {
		t.Errorf("generator calls = %d, want 0 inside cadence window", got)
	}

	h.tick(ctx, true)
	if got := len(h.gen.calls); got != 1 {
		t.Errorf("generator calls after forced tick = %d, want 1", got)
	}
}

func TestTick_SkipsPausedAndFailedChannels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedChannel(t, "paused", models.ChannelPaused, time.Time{})
	h.seedChannel(t, "failed", models.ChannelFailed, time.Time{})

	h.tick(ctx, true)

	if got := len(h.gen.calls); got != 0 {
		t.Errorf("generator calls = %d, want 0 for parked channels", got)
	}
}

func TestProduce_BlockedCandidateNotPersisted(t *testing.T) {
	h := newHarness(t)
	h.gate.approve = false
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	h.tick(ctx, false)

	recs, _ := h.store.ListVideoRecords(ctx, "wildlife", time.Time{}, 0)
	if len(recs) != 0 {
		t.Fatalf("records = %d, want 0 for blocked candidate", len(recs))
	}
	ch, _ := h.store.GetChannel(ctx, "wildlife")
	if ch.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0; a block is not a failure", ch.ConsecutiveErrors)
	}
	if ch.State != models.ChannelActive {
		t.Errorf("State = %q, want active", ch.State)
	}
}

func TestProduce_ParksChannelAfterConsecutiveFailures(t *testing.T) {
	h := newHarness(t)
	h.gen.err = errors.New("generator down")
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	for i := 0; i < 3; i++ {
		h.tick(ctx, true)
	}

	ch, err := h.store.GetChannel(ctx, "wildlife")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if ch.State != models.ChannelFailed {
		t.Fatalf("State = %q, want failed after 3 consecutive errors", ch.State)
	}
	if ch.ConsecutiveErrors != 3 {
		t.Errorf("ConsecutiveErrors = %d, want 3", ch.ConsecutiveErrors)
	}
	if ch.LastError == "" {
		t.Error("LastError empty, want triggering error message")
	}

	before := len(h.gen.calls)
	h.tick(ctx, true)
	if got := len(h.gen.calls); got != before {
		t.Errorf("generator calls after park = %d, want %d", got, before)
	}
}

func TestProduce_SuccessResetsErrorCounter(t *testing.T) {
	h := newHarness(t)
	h.gen.err = errors.New("flaky")
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	h.tick(ctx, true)
	h.tick(ctx, true)

	h.gen.err = nil
	h.tick(ctx, true)

	ch, _ := h.store.GetChannel(ctx, "wildlife")
	if ch.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0 after success", ch.ConsecutiveErrors)
	}
	if ch.State != models.ChannelActive {
		t.Errorf("State = %q, want active", ch.State)
	}
}

func TestProduce_UploadFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	h.up.err = errors.New("platform 503")
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	h.tick(ctx, false)

	recs, _ := h.store.ListVideoRecords(ctx, "wildlife", time.Time{}, 0)
	if len(recs) != 0 {
		t.Fatalf("records = %d, want 0 when upload fails", len(recs))
	}
	ch, _ := h.store.GetChannel(ctx, "wildlife")
	if ch.ConsecutiveErrors != 1 {
		t.Errorf("ConsecutiveErrors = %d, want 1", ch.ConsecutiveErrors)
	}
	if !ch.LastUploadAt.IsZero() {
		t.Errorf("LastUploadAt = %v, want zero", ch.LastUploadAt)
	}
}

func TestProduce_TrendingFallsBackToStandard(t *testing.T) {
	h := newHarness(t)
	h.gen.trendMissingFirst = true
	ctx := context.Background()
	ch := &models.Channel{
		ID:      "trends",
		Theme:   "whatever is hot",
		Format:  models.FormatTrending,
		State:   models.ChannelActive,
		Cadence: 4 * time.Hour,
	}
	if err := h.store.SaveChannel(ctx, ch); err != nil {
		t.Fatalf("seed channel: %v", err)
	}

	h.tick(ctx, false)

	if len(h.gen.calls) != 2 {
		t.Fatalf("generator calls = %d, want 2 (trending then fallback)", len(h.gen.calls))
	}
	if h.gen.calls[0] != models.FormatTrending || h.gen.calls[1] != models.FormatStandard {
		t.Errorf("call formats = %v, want [trending standard]", h.gen.calls)
	}
	recs, _ := h.store.ListVideoRecords(ctx, "trends", time.Time{}, 0)
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0].Format != models.FormatStandard {
		t.Errorf("record format = %q, want standard", recs[0].Format)
	}
}

func TestTick_ProductionOutlivesCallerContext(t *testing.T) {
	h := newHarness(t)
	h.gen.delay = 20 * time.Millisecond
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	// An admin force-tick hands the daemon a request-scoped context that
	// dies as soon as the handler returns.
	reqCtx, cancel := context.WithCancel(context.Background())
	h.daemon.Tick(reqCtx, true)
	cancel()
	h.daemon.wg.Wait()

	ctx := context.Background()
	recs, err := h.store.ListVideoRecords(ctx, "wildlife", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListVideoRecords() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1; production must not inherit the caller's context", len(recs))
	}
	ch, _ := h.store.GetChannel(ctx, "wildlife")
	if ch.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0", ch.ConsecutiveErrors)
	}
}

func TestProduce_ShutdownCancellationNotCountedAsFailure(t *testing.T) {
	h := newHarness(t)
	h.gen.delay = 10 * time.Millisecond
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	prodCtx, cancel := context.WithCancel(context.Background())
	cancel()
	ch, err := h.store.GetChannel(ctx, "wildlife")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	h.daemon.produce(prodCtx, ch)

	ch, _ = h.store.GetChannel(ctx, "wildlife")
	if ch.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0 after shutdown interruption", ch.ConsecutiveErrors)
	}
	if ch.State != models.ChannelActive {
		t.Errorf("State = %q, want active", ch.State)
	}
	if ch.LastError != "" {
		t.Errorf("LastError = %q, want empty", ch.LastError)
	}
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedChannel(t, "wildlife", models.ChannelActive, time.Time{})

	if err := h.daemon.Pause(ctx, "wildlife"); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	ch, _ := h.store.GetChannel(ctx, "wildlife")
	if ch.State != models.ChannelPaused {
		t.Fatalf("State = %q, want paused", ch.State)
	}

	h.tick(ctx, true)
	if got := len(h.gen.calls); got != 0 {
		t.Errorf("generator calls while paused = %d, want 0", got)
	}

	if err := h.daemon.Resume(ctx, "wildlife"); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	ch, _ = h.store.GetChannel(ctx, "wildlife")
	if ch.State != models.ChannelActive {
		t.Errorf("State = %q, want active", ch.State)
	}
	if ch.ConsecutiveErrors != 0 || ch.LastError != "" {
		t.Errorf("error state = (%d, %q), want cleared", ch.ConsecutiveErrors, ch.LastError)
	}
}

func TestPause_UnknownChannel(t *testing.T) {
	h := newHarness(t)
	if err := h.daemon.Pause(context.Background(), "missing"); err == nil {
		t.Fatal("Pause() error = nil, want not-found error")
	}
}

func TestStatus_ReportsSchedulerState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	last := testNow.Add(-time.Hour)
	h.seedChannel(t, "wildlife", models.ChannelActive, last)

	statuses, err := h.daemon.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	st := statuses[0]
	if st.ID != "wildlife" || st.State != models.ChannelActive {
		t.Errorf("status = %+v, want active wildlife", st)
	}
	wantDue := last.Add(4 * time.Hour)
	if !st.NextDueAt.Equal(wantDue) {
		t.Errorf("NextDueAt = %v, want %v", st.NextDueAt, wantDue)
	}
	if st.InFlight {
		t.Error("InFlight = true, want false")
	}
}

func TestClaim_SingleInFlightPerChannel(t *testing.T) {
	h := newHarness(t)
	if !h.daemon.claim("wildlife") {
		t.Fatal("first claim = false, want true")
	}
	if h.daemon.claim("wildlife") {
		t.Fatal("second claim = true, want false while in flight")
	}
	h.daemon.release("wildlife")
	if !h.daemon.claim("wildlife") {
		t.Fatal("claim after release = false, want true")
	}
}
