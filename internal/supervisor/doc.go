// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package supervisor assembles the suture tree that keeps the daemon
// scheduler, outcome monitor, and admin API running with restart-on-crash
// semantics and failure isolation between layers.
package supervisor
