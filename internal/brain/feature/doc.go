// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package feature derives the fixed-width numeric vector the performance
// predictor consumes: title lexical signals, topic signals, script
// structure, temporal encoding, and rolling channel history. Extraction is
// deterministic; the resulting snapshot is frozen onto the video record at
// generation time and never re-derived.
package feature
