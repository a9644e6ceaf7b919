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

// HTTPRenderer calls the external rendering service.
type HTTPRenderer struct {
	http       httpJSONClient
	maxSeconds int
	timeout    time.Duration
}

var _ Renderer = (*HTTPRenderer)(nil)

type renderRequest struct {
	Candidate  *models.Candidate `json:"candidate"`
	MaxSeconds int               `json:"max_seconds"`
}

type renderResponse struct {
	Path string `json:"path"`
}

// NewHTTPRenderer builds a renderer client from collaborator settings.
func NewHTTPRenderer(cfg config.CollaboratorsConfig, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		http:       newHTTPJSONClient(cfg.RendererURL, timeout, cfg.RequestsPerSecond),
		maxSeconds: cfg.MaxVideoSeconds,
		timeout:    timeout,
	}
}

// Render submits the candidate and returns the rendered file path.
func (r *HTTPRenderer) Render(ctx context.Context, cand *models.Candidate) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var resp renderResponse
	req := renderRequest{Candidate: cand, MaxSeconds: r.maxSeconds}
	if err := r.http.postJSON(ctx, "/v1/render", req, &resp); err != nil {
		return "", fmt.Errorf("render video: %w", err)
	}
	if resp.Path == "" {
		return "", fmt.Errorf("render video: empty file path in response")
	}
	return resp.Path, nil
}
