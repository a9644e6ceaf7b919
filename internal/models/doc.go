// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package models defines the persistent and in-flight data types shared by
// the decision core: channels, video candidates and records, outcomes,
// variant arms, and topic documents.
//
// Ownership rules:
//   - A channel exclusively owns its sequence of VideoRecords.
//   - A VideoRecord exclusively owns its FeatureSnapshot and Outcome series.
//   - VariantArms are owned by the channel and shared-read by the bandit
//     and the brain.
//   - TopicDocuments are channel-scoped.
//
// VideoRecords are immutable after upload except for outcome fields.
package models
