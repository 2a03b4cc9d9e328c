// Package demo runs an ordered list of named steps, each with its own
// success or failure outcome. The lookup table walkthrough is strictly
// sequential: every step depends on the previous step's on-chain
// confirmation, so the sequence stops at the first failure.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Step is a single named unit of work in a sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result records the outcome of one executed step.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Sequence executes steps in order.
type Sequence struct {
	logger *slog.Logger
	steps  []Step
}

// NewSequence creates a sequence over the given steps.
func NewSequence(logger *slog.Logger, steps ...Step) *Sequence {
	return &Sequence{logger: logger, steps: steps}
}

// Run executes the steps in order, stopping at the first failure. It
// returns the results of every step that ran; when a step fails, the
// returned error wraps that step's error and names it.
func (s *Sequence) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(s.steps))

	for i, step := range s.steps {
		s.logger.InfoContext(ctx, "running step",
			"step", step.Name,
			"index", i+1,
			"total", len(s.steps),
		)

		start := time.Now()
		err := step.Run(ctx)
		result := Result{
			Name:     step.Name,
			Err:      err,
			Duration: time.Since(start),
		}
		results = append(results, result)

		if err != nil {
			s.logger.ErrorContext(ctx, "step failed",
				"step", step.Name,
				"duration", result.Duration,
				"error", err,
			)
			return results, fmt.Errorf("step %q failed: %w", step.Name, err)
		}

		s.logger.InfoContext(ctx, "step complete",
			"step", step.Name,
			"duration", result.Duration,
		)
	}

	return results, nil
}
