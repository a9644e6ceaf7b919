// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package monitor checkpoints recent uploads at bounded wall-clock offsets
// (15m, 1h, 6h, 24h by default). Each checkpoint fetches platform metrics,
// clamps non-monotone view counts, classifies the video against the
// channel's historical trajectory at the same offset, and records recovery
// advisories for videos failing within their first hour. The final
// checkpoint drives the observation into the learning sink; if it cannot
// be collected within the retry budget the video is abandoned with an
// unknown outcome and excluded from learning.
//
// Scheduling is best-effort and poll-driven. Missing a checkpoint by more
// than the interval to the next one skips it; later checkpoints still run.
package monitor
