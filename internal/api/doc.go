// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package api serves the local admin HTTP interface: channel status with
// learning summaries, forced ticks, pause/resume, graceful shutdown, and
// the Prometheus metrics endpoint. The CLI client talks to this server.
package api
