// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package metrics defines the Prometheus collectors for the decision core:
// gate verdicts and thresholds, bandit allocations, production results,
// checkpoint health, and collaborator circuit breakers. Collectors are
// registered on the default registry via promauto and exposed on /metrics
// by the admin API.
package metrics
