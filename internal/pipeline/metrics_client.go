// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/metrics"
	"github.com/tomtom215/shortforge/internal/monitor"
)

const metricsBreakerName = "platform_metrics"

// HTTPMetricsClient fetches platform analytics behind a circuit breaker.
// The platform API is the flakiest collaborator and every video generates
// periodic checkpoint traffic, so sustained failures trip the breaker and
// stop the monitor from hammering a dead endpoint.
type HTTPMetricsClient struct {
	http    httpJSONClient
	breaker *gobreaker.CircuitBreaker[monitor.Metrics]
	timeout time.Duration
}

var _ monitor.MetricsFetcher = (*HTTPMetricsClient)(nil)

// metricsResponse tolerates partial payloads; absent fields read as zero.
type metricsResponse struct {
	Views    float64 `json:"views"`
	Likes    float64 `json:"likes"`
	Comments float64 `json:"comments"`
}

// NewHTTPMetricsClient builds a metrics client from collaborator settings.
func NewHTTPMetricsClient(cfg config.CollaboratorsConfig, timeout time.Duration) *HTTPMetricsClient {
	settings := gobreaker.Settings{
		Name:        metricsBreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger().Warn().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	return &HTTPMetricsClient{
		http:    newHTTPJSONClient(cfg.MetricsURL, timeout, cfg.RequestsPerSecond),
		breaker: gobreaker.NewCircuitBreaker[monitor.Metrics](settings),
		timeout: timeout,
	}
}

// FetchMetrics returns current platform metrics for an uploaded video.
func (c *HTTPMetricsClient) FetchMetrics(ctx context.Context, platformID string) (monitor.Metrics, error) {
	out, err := c.breaker.Execute(func() (monitor.Metrics, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var resp metricsResponse
		path := "/v1/metrics/" + url.PathEscape(platformID)
		if err := c.http.getJSON(ctx, path, &resp); err != nil {
			return monitor.Metrics{}, err
		}
		return monitor.Metrics{
			Views:    resp.Views,
			Likes:    resp.Likes,
			Comments: resp.Comments,
		}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(metricsBreakerName, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(metricsBreakerName, "failure").Inc()
		}
		return monitor.Metrics{}, fmt.Errorf("fetch metrics %s: %w", platformID, err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(metricsBreakerName, "success").Inc()
	return out, nil
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
