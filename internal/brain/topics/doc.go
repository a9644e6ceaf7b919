// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package topics maintains a per-channel TF-IDF vector space over
// historical topics. It answers three questions for the brain: which past
// winner is most similar to a proposed topic, which topics are worth
// producing next, and whether a topic (or its similarity cluster) is
// fatigued from recent overuse with poor outcomes.
package topics
