// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package pipeline holds the HTTP clients for the external collaborator
// services: script generation, rendering, uploading, and platform
// analytics. Each client is rate limited and bounded by a per-call
// timeout; the metrics client additionally sits behind a circuit breaker.
// The Retrier wraps transient failures with exponential backoff while
// letting invalid candidates fail fast.
package pipeline
