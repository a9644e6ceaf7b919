// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/shortforge/internal/models"
)

// Validate checks that the configuration is coherent. A validation error
// terminates the daemon with exit code 1.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateBandit(); err != nil {
		return err
	}
	if err := c.validatePredictor(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateTopics(); err != nil {
		return err
	}
	return c.validateChannels()
}

func (c *Config) validateDaemon() error {
	if c.Daemon.CadenceDefault <= 0 {
		return fmt.Errorf("daemon.cadence_default must be positive, got %s", c.Daemon.CadenceDefault)
	}
	if c.Daemon.MaxConcurrentProductions < 1 {
		return fmt.Errorf("daemon.max_concurrent_productions must be >= 1, got %d", c.Daemon.MaxConcurrentProductions)
	}
	if c.Daemon.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("daemon.max_consecutive_errors must be >= 1, got %d", c.Daemon.MaxConsecutiveErrors)
	}
	return nil
}

func (c *Config) validateGate() error {
	if c.Gate.ThresholdDefault < 0 || c.Gate.ThresholdDefault > 100 {
		return fmt.Errorf("gate.threshold_default must be in [0,100], got %g", c.Gate.ThresholdDefault)
	}
	if c.Gate.BlockRateLow < 0 || c.Gate.BlockRateHigh > 1 || c.Gate.BlockRateLow >= c.Gate.BlockRateHigh {
		return fmt.Errorf("gate block-rate band [%g,%g] is invalid", c.Gate.BlockRateLow, c.Gate.BlockRateHigh)
	}
	if c.Gate.AdaptWindow < 1 {
		return fmt.Errorf("gate.adapt_window must be >= 1, got %d", c.Gate.AdaptWindow)
	}
	return nil
}

func (c *Config) validateBandit() error {
	if len(c.Bandit.Arms) < 2 {
		return fmt.Errorf("bandit.arms needs at least two arms, got %d", len(c.Bandit.Arms))
	}
	if c.Bandit.PriorAlpha <= 0 || c.Bandit.PriorBeta <= 0 {
		return fmt.Errorf("bandit prior Beta(%g,%g) must have positive parameters", c.Bandit.PriorAlpha, c.Bandit.PriorBeta)
	}
	return nil
}

func (c *Config) validatePredictor() error {
	if c.Predictor.HalfLifeDays <= 0 {
		return fmt.Errorf("predictor.half_life_days must be positive, got %g", c.Predictor.HalfLifeDays)
	}
	if c.Predictor.ColdStartCIInflation < 1 {
		return fmt.Errorf("predictor.cold_start_ci_inflation must be >= 1, got %g", c.Predictor.ColdStartCIInflation)
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if len(c.Monitor.Offsets) == 0 {
		return fmt.Errorf("monitor.offsets must not be empty")
	}
	var prev time.Duration
	for _, off := range c.Monitor.Offsets {
		if off <= prev {
			return fmt.Errorf("monitor.offsets must be strictly increasing, got %v", c.Monitor.Offsets)
		}
		prev = off
	}
	if c.Monitor.AbandonAfter <= c.Monitor.Offsets[len(c.Monitor.Offsets)-1] {
		return fmt.Errorf("monitor.abandon_after %s must exceed the last offset", c.Monitor.AbandonAfter)
	}
	return nil
}

func (c *Config) validateTopics() error {
	if c.Topics.FatigueUses < 1 {
		return fmt.Errorf("topics.fatigue_uses must be >= 1, got %d", c.Topics.FatigueUses)
	}
	if c.Topics.ClusterSimilarity <= 0 || c.Topics.ClusterSimilarity > 1 {
		return fmt.Errorf("topics.cluster_similarity must be in (0,1], got %g", c.Topics.ClusterSimilarity)
	}
	if c.Topics.WinnerPercentile <= 0 || c.Topics.WinnerPercentile >= 1 {
		return fmt.Errorf("topics.winner_percentile must be in (0,1), got %g", c.Topics.WinnerPercentile)
	}
	return nil
}

func (c *Config) validateChannels() error {
	seen := make(map[string]bool, len(c.Channels))
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.ID == "" {
			return fmt.Errorf("channels[%d]: id is required", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("channels: duplicate id %q", ch.ID)
		}
		seen[ch.ID] = true
		if ch.Format != "" && !models.VideoFormat(ch.Format).Valid() {
			return fmt.Errorf("channel %s: unknown format %q", ch.ID, ch.Format)
		}
	}
	return nil
}

// Channel materializes a ChannelConfig into a models.Channel, applying the
// daemon-level cadence default.
func (c *Config) Channel(cc ChannelConfig) models.Channel {
	cadence := cc.Cadence
	if cadence <= 0 {
		cadence = c.Daemon.CadenceDefault
	}
	format := models.VideoFormat(cc.Format)
	if format == "" {
		format = models.FormatStandard
	}
	now := time.Now().UTC()
	return models.Channel{
		ID:        cc.ID,
		Theme:     cc.Theme,
		Format:    format,
		State:     models.ChannelActive,
		Cadence:   cadence,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
