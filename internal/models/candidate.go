// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package models

import (
	"time"
)

// Segment is a single narrated beat of a script with its spoken text and
// estimated duration in seconds.
type Segment struct {
	Text     string  `json:"text" validate:"required"`
	Duration float64 `json:"duration" validate:"gt=0"`
}

// Script is the structured output of the external script generator.
type Script struct {
	Segments []Segment `json:"segments" validate:"required,min=1,dive"`
}

// TotalDuration returns the summed duration of all segments in seconds.
func (s Script) TotalDuration() float64 {
	var total float64
	for _, seg := range s.Segments {
		total += seg.Duration
	}
	return total
}

// SegmentDurations returns the per-segment durations in order.
func (s Script) SegmentDurations() []float64 {
	out := make([]float64, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = seg.Duration
	}
	return out
}

// Candidate is an ephemeral video proposal produced by the script generator
// and consumed by the brain's gate. It is either discarded (blocked) or
// promoted to a VideoRecord.
//
// Candidate is a closed variant type: the Format tag selects which body
// field is populated. Standard candidates carry no body.
type Candidate struct {
	Title       string      `json:"title" validate:"required"`
	Topic       string      `json:"topic" validate:"required"`
	Script      Script      `json:"script" validate:"required"`
	ChannelID   string      `json:"channel_id" validate:"required"`
	Variant     string      `json:"variant" validate:"required"`
	Format      VideoFormat `json:"format" validate:"required"`
	GeneratedAt time.Time   `json:"generated_at"`

	// Ranking is set only when Format == FormatRanking.
	Ranking *RankingBody `json:"ranking,omitempty"`

	// Trending is set only when Format == FormatTrending.
	Trending *TrendingBody `json:"trending,omitempty"`
}

// RankingBody carries the countdown structure of a ranking candidate.
type RankingBody struct {
	// Count is the announced list length ("top 10" => 10).
	Count int `json:"count" validate:"gt=0"`

	// Entries are the ranked items, best last.
	Entries []string `json:"entries"`
}

// TrendingBody carries the provenance of a trending candidate.
type TrendingBody struct {
	// TrendingTopic is the source trend the candidate derives from.
	// Empty when the generator could not find a live trend; the daemon
	// falls back to standard generation once per tick in that case.
	TrendingTopic string `json:"trending_topic"`

	// Source names the trend provider.
	Source string `json:"source,omitempty"`
}

// HasCountdown reports whether the candidate has a countdown structure.
func (c *Candidate) HasCountdown() bool {
	return c.Format == FormatRanking && c.Ranking != nil && c.Ranking.Count > 0
}

// TrendMissing reports whether a trending candidate lacks a live trend.
func (c *Candidate) TrendMissing() bool {
	return c.Format == FormatTrending && (c.Trending == nil || c.Trending.TrendingTopic == "")
}
