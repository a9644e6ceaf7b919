// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package store persists the decision core's state: channels, video records
// with their frozen feature snapshots, outcomes, variant arms, topic
// documents, predictor weights, and recovery advisories.
//
// Two implementations are provided. BadgerStore is the production store,
// an embedded BadgerDB with JSON values and time-ordered index keys for
// range queries. MemoryStore backs tests and ephemeral runs.
package store
