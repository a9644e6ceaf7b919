// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/models"
)

// HTTPGenerator calls the external script generation service.
type HTTPGenerator struct {
	http       httpJSONClient
	maxSeconds int
	timeout    time.Duration
	now        func() time.Time
}

var _ ScriptGenerator = (*HTTPGenerator)(nil)

type generateRequest struct {
	ChannelID  string             `json:"channel_id"`
	Theme      string             `json:"theme"`
	Format     models.VideoFormat `json:"format"`
	Variant    string             `json:"variant"`
	MaxSeconds int                `json:"max_seconds"`
}

// NewHTTPGenerator builds a generator client from collaborator settings.
func NewHTTPGenerator(cfg config.CollaboratorsConfig, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		http:       newHTTPJSONClient(cfg.GeneratorURL, timeout, cfg.RequestsPerSecond),
		maxSeconds: cfg.MaxVideoSeconds,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Generate requests a fresh candidate and validates it before returning.
func (g *HTTPGenerator) Generate(ctx context.Context, ch *models.Channel, variant string) (*models.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := generateRequest{
		ChannelID:  ch.ID,
		Theme:      ch.Theme,
		Format:     ch.Format,
		Variant:    variant,
		MaxSeconds: g.maxSeconds,
	}
	var cand models.Candidate
	if err := g.http.postJSON(ctx, "/v1/generate", req, &cand); err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}

	cand.ChannelID = ch.ID
	cand.Variant = variant
	if cand.Format == "" {
		cand.Format = ch.Format
	}
	if cand.GeneratedAt.IsZero() {
		cand.GeneratedAt = g.now().UTC()
	}
	if err := ValidateCandidate(&cand, g.maxSeconds); err != nil {
		return nil, err
	}
	return &cand, nil
}
