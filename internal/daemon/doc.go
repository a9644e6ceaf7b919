// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package daemon schedules per-channel video production. Each tick it
// scans for channels whose cadence has elapsed, consults the decision
// gate, and drives the external generate/render/upload pipeline under a
// bounded worker pool with at most one in-flight production per channel.
// The daemon is the only component that mutates channel activation state:
// operators pause and resume channels through it, and a channel is parked
// automatically after too many consecutive production failures.
package daemon
