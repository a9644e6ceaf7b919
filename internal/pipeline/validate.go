// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

package pipeline

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/shortforge/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCandidate checks generator output before it reaches the gate.
// maxSeconds bounds the total script duration; zero disables the check.
// Failures wrap ErrInvalidCandidate and are never retried.
func ValidateCandidate(cand *models.Candidate, maxSeconds int) error {
	if cand == nil {
		return fmt.Errorf("%w: nil candidate", ErrInvalidCandidate)
	}
	if err := validate.Struct(cand); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}
	if !cand.Format.Valid() {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidCandidate, cand.Format)
	}
	if cand.Format == models.FormatRanking {
		if cand.Ranking == nil || cand.Ranking.Count <= 0 {
			return fmt.Errorf("%w: ranking candidate without countdown", ErrInvalidCandidate)
		}
	}
	if maxSeconds > 0 {
		if total := cand.Script.TotalDuration(); total > float64(maxSeconds) {
			return fmt.Errorf("%w: script runs %.1fs, budget %ds", ErrInvalidCandidate, total, maxSeconds)
		}
	}
	return nil
}
