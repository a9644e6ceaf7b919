// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package logging provides centralized zerolog-based logging for Shortforge.
//
// Initialize once at startup, then log through the package-level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("channel", id).Msg("production started")
//
// Component loggers carry a fixed field:
//
//	logger := logging.With().Str("component", "daemon").Logger()
//
// Context-aware logging propagates a correlation ID through one production
// attempt so the generate/gate/render/upload stages of a tick can be joined
// in log output:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("candidate approved")
//
// The slog adapter lets libraries that require *slog.Logger (sutureslog in
// particular) write through zerolog.
package logging
