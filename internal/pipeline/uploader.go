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
)

// HTTPUploader calls the external upload service.
type HTTPUploader struct {
	http    httpJSONClient
	timeout time.Duration
}

var _ Uploader = (*HTTPUploader)(nil)

type uploadRequest struct {
	FilePath string `json:"file_path"`
	UploadMetadata
}

type uploadResponse struct {
	PlatformID string `json:"platform_id"`
}

// NewHTTPUploader builds an uploader client from collaborator settings.
func NewHTTPUploader(cfg config.CollaboratorsConfig, timeout time.Duration) *HTTPUploader {
	return &HTTPUploader{
		http:    newHTTPJSONClient(cfg.UploaderURL, timeout, cfg.RequestsPerSecond),
		timeout: timeout,
	}
}

// Upload publishes the rendered file and returns the platform video ID.
func (u *HTTPUploader) Upload(ctx context.Context, filePath string, meta UploadMetadata) (string, error) {
	if meta.IdempotencyKey == "" {
		return "", fmt.Errorf("upload video: missing idempotency key")
	}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var resp uploadResponse
	req := uploadRequest{FilePath: filePath, UploadMetadata: meta}
	if err := u.http.postJSON(ctx, "/v1/upload", req, &resp); err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	if resp.PlatformID == "" {
		return "", fmt.Errorf("upload video: empty platform id in response")
	}
	return resp.PlatformID, nil
}
