// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package config loads and validates daemon configuration from struct
// defaults, an optional YAML file, and SHORTFORGE_-prefixed environment
// variables, in that order of precedence (last wins).
package config
