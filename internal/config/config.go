// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package config

import (
	"time"

	"github.com/tomtom215/shortforge/internal/logging"
)

// Config is the root configuration for the shortforge daemon.
type Config struct {
	Daemon        DaemonConfig        `koanf:"daemon"`
	Gate          GateConfig          `koanf:"gate"`
	Bandit        BanditConfig        `koanf:"bandit"`
	Predictor     PredictorConfig     `koanf:"predictor"`
	Monitor       MonitorConfig       `koanf:"monitor"`
	Topics        TopicsConfig        `koanf:"topics"`
	Reward        RewardConfig        `koanf:"reward"`
	Timeouts      TimeoutsConfig      `koanf:"timeouts"`
	Store         StoreConfig         `koanf:"store"`
	Admin         AdminConfig         `koanf:"admin"`
	Collaborators CollaboratorsConfig `koanf:"collaborators"`
	Logging       logging.Config      `koanf:"logging"`
	Channels      []ChannelConfig     `koanf:"channels"`
}

// DaemonConfig controls the production loop.
type DaemonConfig struct {
	// CadenceDefault is the minimum interval between uploads on a channel
	// that does not override it.
	CadenceDefault time.Duration `koanf:"cadence_default"`

	// TickInterval is how often the daemon scans channels for due work.
	TickInterval time.Duration `koanf:"tick_interval"`

	// MaxConcurrentProductions bounds cross-channel production concurrency.
	MaxConcurrentProductions int `koanf:"max_concurrent_productions"`

	// MaxConsecutiveErrors is the K after which a channel is parked.
	MaxConsecutiveErrors int `koanf:"max_consecutive_errors"`

	// RetryAttempts is the per-external-call retry budget.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBackoffBase is the initial backoff between retries.
	RetryBackoffBase time.Duration `koanf:"retry_backoff_base"`
}

// GateConfig controls the brain's approve/block gate.
type GateConfig struct {
	// ThresholdDefault is the initial composite-score threshold T.
	ThresholdDefault float64 `koanf:"threshold_default"`

	// BlockRateLow/High bound the target block-rate band. When the rolling
	// block rate over AdaptWindow evaluations leaves the band, T is nudged
	// by AdaptStep toward it.
	BlockRateLow  float64 `koanf:"block_rate_low"`
	BlockRateHigh float64 `koanf:"block_rate_high"`
	AdaptWindow   int     `koanf:"adapt_window"`
	AdaptStep     float64 `koanf:"adapt_step"`

	// AttributionEpsilon is the minimum |weight contribution| for a feature
	// to surface as a strength or risk factor.
	AttributionEpsilon float64 `koanf:"attribution_epsilon"`
}

// BanditConfig controls the per-channel Thompson sampler.
type BanditConfig struct {
	// Arms are the variant arms created for every channel.
	Arms []string `koanf:"arms"`

	// WarmupPulls is the number of pulls per arm allocated round-robin
	// before Thompson sampling is trusted.
	WarmupPulls int `koanf:"warmup_pulls"`

	// PriorAlpha/PriorBeta parameterize the initial Beta prior.
	PriorAlpha float64 `koanf:"prior_alpha"`
	PriorBeta  float64 `koanf:"prior_beta"`

	// WarmStartWeight is the pseudo-observation mass given to a newly
	// introduced arm, seeded with the channel-wide historical mean.
	WarmStartWeight float64 `koanf:"warm_start_weight"`
}

// PredictorConfig controls the online performance predictor.
type PredictorConfig struct {
	// HalfLifeDays is the decay half-life for old observations.
	HalfLifeDays float64 `koanf:"half_life_days"`

	// ColdStartMinObservations is the per-channel observation count below
	// which the global prior is used and the confidence interval widened.
	ColdStartMinObservations int `koanf:"cold_start_min_observations"`

	// ColdStartCIInflation multiplies the confidence interval width during
	// cold start.
	ColdStartCIInflation float64 `koanf:"cold_start_ci_inflation"`

	// RidgeLambda is the L2 regularization strength.
	RidgeLambda float64 `koanf:"ridge_lambda"`

	// LearningRate is the online gradient step size.
	LearningRate float64 `koanf:"learning_rate"`
}

// MonitorConfig controls checkpoint scheduling.
type MonitorConfig struct {
	// Offsets is the ordered checkpoint schedule, as durations.
	Offsets []time.Duration `koanf:"offsets"`

	// AbandonAfter is how long a missed 24h checkpoint is retried before
	// the outcome is marked unknown.
	AbandonAfter time.Duration `koanf:"abandon_after"`

	// HistoryWindow is the number of recent videos used to build the
	// channel trajectory baseline per offset.
	HistoryWindow int `koanf:"history_window"`

	// PollInterval is how often due checkpoints are scanned.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// TopicsConfig controls fatigue detection and topic recommendation.
type TopicsConfig struct {
	// FatigueUses is the use count F within the window that, combined with
	// underperformance, marks a topic fatigued.
	FatigueUses int `koanf:"fatigue_uses"`

	// FatigueWindowDays is the lookback window for counting uses.
	FatigueWindowDays int `koanf:"fatigue_window_days"`

	// FatigueOutcomeFactor is the channel-median multiplier below which
	// the last-three-uses mean outcome counts as underperforming.
	FatigueOutcomeFactor float64 `koanf:"fatigue_outcome_factor"`

	// ClusterSimilarity is the cosine threshold for fatigue to spread to a
	// topic's similarity cluster.
	ClusterSimilarity float64 `koanf:"cluster_similarity"`

	// WinnerPercentile selects which topics count as winners.
	WinnerPercentile float64 `koanf:"winner_percentile"`
}

// RewardConfig controls how observed outcomes map to bandit reward.
type RewardConfig struct {
	// EngagementWeight folds likes+comments into reward before clipping:
	// reward = clip((views + w*engagement) / (2*median), 0, 1).
	// Default 0 keeps the reward purely view-relative.
	EngagementWeight float64 `koanf:"engagement_weight"`
}

// TimeoutsConfig bounds every external call.
type TimeoutsConfig struct {
	Generate        time.Duration `koanf:"generate"`
	Render          time.Duration `koanf:"render"`
	Upload          time.Duration `koanf:"upload"`
	CheckpointFetch time.Duration `koanf:"checkpoint_fetch"`
}

// StoreConfig selects the persistent store. An empty path selects the
// in-memory store (useful for development and tests).
type StoreConfig struct {
	Path string `koanf:"path"`
}

// AdminConfig controls the loopback admin API.
type AdminConfig struct {
	ListenAddr string `koanf:"listen_addr"`

	// RateLimit is requests per minute per client IP.
	RateLimit int `koanf:"rate_limit"`
}

// CollaboratorsConfig locates the external pipeline services.
type CollaboratorsConfig struct {
	GeneratorURL string `koanf:"generator_url"`
	RendererURL  string `koanf:"renderer_url"`
	UploaderURL  string `koanf:"uploader_url"`
	MetricsURL   string `koanf:"metrics_url"`

	// MaxVideoSeconds is the render duration budget for the shorts format.
	MaxVideoSeconds int `koanf:"max_video_seconds"`

	// RequestsPerSecond rate-limits calls to each collaborator.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// ChannelConfig declares a channel in the config file. Channels are merged
// into the store at startup; runtime state (pauses, error counters) in the
// store wins over the file.
type ChannelConfig struct {
	ID      string        `koanf:"id"`
	Theme   string        `koanf:"theme"`
	Format  string        `koanf:"format"`
	Cadence time.Duration `koanf:"cadence"`
}

// Default returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			CadenceDefault:           4 * time.Hour,
			TickInterval:             time.Minute,
			MaxConcurrentProductions: 4,
			MaxConsecutiveErrors:     3,
			RetryAttempts:            3,
			RetryBackoffBase:         2 * time.Second,
		},
		Gate: GateConfig{
			ThresholdDefault:   40,
			BlockRateLow:       0.10,
			BlockRateHigh:      0.30,
			AdaptWindow:        20,
			AdaptStep:          2,
			AttributionEpsilon: 0.05,
		},
		Bandit: BanditConfig{
			Arms:            []string{"control", "strategy"},
			WarmupPulls:     5,
			PriorAlpha:      1,
			PriorBeta:       1,
			WarmStartWeight: 2,
		},
		Predictor: PredictorConfig{
			HalfLifeDays:             60,
			ColdStartMinObservations: 10,
			ColdStartCIInflation:     2.0,
			RidgeLambda:              0.01,
			LearningRate:             0.05,
		},
		Monitor: MonitorConfig{
			Offsets:       []time.Duration{15 * time.Minute, time.Hour, 6 * time.Hour, 24 * time.Hour},
			AbandonAfter:  48 * time.Hour,
			HistoryWindow: 50,
			PollInterval:  time.Minute,
		},
		Topics: TopicsConfig{
			FatigueUses:          3,
			FatigueWindowDays:    30,
			FatigueOutcomeFactor: 0.8,
			ClusterSimilarity:    0.7,
			WinnerPercentile:     0.75,
		},
		Reward: RewardConfig{
			EngagementWeight: 0,
		},
		Timeouts: TimeoutsConfig{
			Generate:        120 * time.Second,
			Render:          300 * time.Second,
			Upload:          600 * time.Second,
			CheckpointFetch: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: "/data/shortforge",
		},
		Admin: AdminConfig{
			ListenAddr: "127.0.0.1:8750",
			RateLimit:  120,
		},
		Collaborators: CollaboratorsConfig{
			MaxVideoSeconds:   60,
			RequestsPerSecond: 2,
		},
		Logging: logging.DefaultConfig(),
	}
}
