// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package pipeline

import (
	"context"
	"errors"

	"github.com/tomtom215/shortforge/internal/models"
)

// ErrInvalidCandidate marks generator output missing required fields or
// exceeding the render budget. Not retried; counts as a production failure.
var ErrInvalidCandidate = errors.New("pipeline: invalid candidate")

// ScriptGenerator drafts a candidate for a channel and variant arm.
// Determinism is not required and results are never cached.
type ScriptGenerator interface {
	Generate(ctx context.Context, ch *models.Channel, variant string) (*models.Candidate, error)
}

// Renderer turns an approved candidate into a video file and returns its
// path.
type Renderer interface {
	Render(ctx context.Context, cand *models.Candidate) (string, error)
}

// UploadMetadata accompanies an upload. The idempotency key is created
// once per production attempt so retried uploads cannot double-publish.
type UploadMetadata struct {
	Title          string `json:"title"`
	Topic          string `json:"topic"`
	ChannelID      string `json:"channel_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Uploader publishes a rendered file and returns the platform video ID.
// Must be idempotent on the metadata's idempotency key.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta UploadMetadata) (string, error)
}
