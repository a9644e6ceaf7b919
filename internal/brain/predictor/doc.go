// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package predictor implements the per-channel online performance model.
// It is a linear model over departures from the neutral feature baseline,
// predicting a log-relative view multiple against the channel median.
// Learned weights start at a global prior, move by single gradient steps
// as outcomes arrive, and decay back toward the prior with a configurable
// half-life so stale lessons fade. The channel-relative score maps the
// predicted views through the standard normal cdf against the channel's
// rolling median and sigma.
package predictor
