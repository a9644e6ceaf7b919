// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package bandit implements per-channel Thompson sampling over content
// strategy variants. Each arm carries a Beta posterior on a fractional
// [0,1] reward; allocation draws one sample per arm and plays the argmax,
// falling back to round-robin while arms are still warming up. A winner is
// declared only when one arm's 95% credible interval clears every other
// arm's interval entirely.
package bandit
