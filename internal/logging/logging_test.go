// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// capture reinitializes the global logger against a buffer and returns it.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Init(Config{Level: "debug", Format: "json", Output: buf})
	t.Cleanup(func() { Init(DefaultConfig()) })
	return buf
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decoding log line %q: %v", line, err)
	}
	return entry
}

func TestLoggerChainsFromAccessor(t *testing.T) {
	buf := capture(t)

	Logger().Warn().Str("channel", "tech-shorts").Msg("parked")

	entry := decodeLine(t, buf.String())
	if got := entry["channel"]; got != "tech-shorts" {
		t.Errorf("channel = %v, want tech-shorts", got)
	}
	if got := entry["level"]; got != "warn" {
		t.Errorf("level = %v, want warn", got)
	}
}

func TestLoggerChildContext(t *testing.T) {
	buf := capture(t)

	child := Logger().With().Str("component", "daemon").Logger()
	child.Info().Msg("tick")

	entry := decodeLine(t, buf.String())
	if got := entry["component"]; got != "daemon" {
		t.Errorf("component = %v, want daemon", got)
	}
}

func TestCtxCarriesCorrelationID(t *testing.T) {
	buf := capture(t)

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	Ctx(ctx).Info().Str("video_id", "v1").Msg("checkpoint observed")

	entry := decodeLine(t, buf.String())
	if got := entry["correlation_id"]; got != "abc12345" {
		t.Errorf("correlation_id = %v, want abc12345", got)
	}
	if got := entry["video_id"]; got != "v1" {
		t.Errorf("video_id = %v, want v1", got)
	}
}

func TestCtxWithoutCorrelationID(t *testing.T) {
	buf := capture(t)

	Ctx(context.Background()).Info().Msg("bare")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["correlation_id"]; ok {
		t.Error("correlation_id present on context without one")
	}
}

func TestContextWithNewCorrelationID(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("correlation ID %q length = %d, want 8", id, len(id))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConsoleFormatOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Config{Level: "info", Format: "console", Output: buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Logger().Info().Msg("console line")

	if !strings.Contains(buf.String(), "console line") {
		t.Errorf("console output missing message: %q", buf.String())
	}
}
