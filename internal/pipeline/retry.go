// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/shortforge/internal/logging"
)

// Retrier reruns a failing operation with exponential backoff. Invalid
// candidates and context cancellation end the attempt loop immediately.
type Retrier struct {
	Attempts    int
	BackoffBase time.Duration
}

// Do runs fn up to r.Attempts times. The returned error wraps the last
// attempt's error.
func (r Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := r.BackoffBase
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidCandidate) || ctx.Err() != nil {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		logging.Logger().Warn().
			Str("operation", op).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(err).
			Msg("operation failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", op, attempts, lastErr)
}
