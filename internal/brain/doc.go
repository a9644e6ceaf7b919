// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package brain is the decision core. It owns the per-channel learners
// (performance predictor, variant bandit, topic index), gates candidates
// with a composite score against an adaptive per-channel threshold, and
// fans final outcomes back into every learner.
//
// The brain is purely advisory. It returns verdicts and recommendations;
// the daemon is the only component that generates, renders, or uploads.
// Gate failures never block production: any internal error during an
// evaluation collapses to an approval with the cold-start flag set.
package brain
