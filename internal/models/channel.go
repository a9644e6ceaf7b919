// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package models

import (
	"fmt"
	"time"
)

// VideoFormat identifies the production strategy for a channel.
type VideoFormat string

const (
	// FormatStandard is a plain narrated short.
	FormatStandard VideoFormat = "standard"

	// FormatRanking is a countdown-structured short ("top N ...").
	FormatRanking VideoFormat = "ranking"

	// FormatTrending is a short derived from a currently trending topic.
	// Falls back to standard generation when no trending topic is available.
	FormatTrending VideoFormat = "trending"
)

// Valid reports whether the format is one of the closed set.
func (f VideoFormat) Valid() bool {
	switch f {
	case FormatStandard, FormatRanking, FormatTrending:
		return true
	}
	return false
}

// ChannelState is the activation state of a channel.
type ChannelState string

const (
	// ChannelActive channels are eligible for production.
	ChannelActive ChannelState = "active"

	// ChannelPaused channels were paused by an operator. No production.
	ChannelPaused ChannelState = "paused"

	// ChannelFailed channels were paused automatically after consecutive
	// production errors. No production until resumed.
	ChannelFailed ChannelState = "failed"
)

// Producible reports whether the daemon may produce for a channel in this state.
func (s ChannelState) Producible() bool {
	return s == ChannelActive
}

// Channel is a managed upload destination with its own cadence, theme,
// and learning state.
type Channel struct {
	ID     string       `json:"id" validate:"required"`
	Theme  string       `json:"theme" validate:"required"`
	Format VideoFormat  `json:"format" validate:"required"`
	State  ChannelState `json:"state"`

	// Cadence is the minimum interval between uploads.
	Cadence time.Duration `json:"cadence"`

	// LastUploadAt is the upload time of the most recent VideoRecord,
	// zero if the channel has never uploaded.
	LastUploadAt time.Time `json:"last_upload_at"`

	// ConsecutiveErrors counts production failures since the last success.
	ConsecutiveErrors int `json:"consecutive_errors"`

	// LastError is the message of the most recent production failure,
	// surfaced in status output for paused/failed channels.
	LastError string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Due reports whether the channel's cadence has elapsed at the given time.
// A channel that has never uploaded is always due.
func (c *Channel) Due(now time.Time) bool {
	if c.LastUploadAt.IsZero() {
		return true
	}
	return now.Sub(c.LastUploadAt) >= c.Cadence
}

// Validate checks channel invariants.
func (c *Channel) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("channel id is required")
	}
	if !c.Format.Valid() {
		return fmt.Errorf("channel %s: invalid format %q", c.ID, c.Format)
	}
	if c.Cadence <= 0 {
		return fmt.Errorf("channel %s: cadence must be positive, got %s", c.ID, c.Cadence)
	}
	return nil
}
