// Package pipeline implements the ordered pipelines that provision,
// decommission and renew a domain. Each pipeline is a data-described sequence of
// named steps so the abort/tolerate policy is auditable and testable
// without real subprocess execution.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// FailurePolicy controls how a step failure affects the run.
type FailurePolicy int

const (
	// Abort stops the run on any error. Earlier artifacts are not rolled
	// back; partial state is an accepted, visible outcome.
	Abort FailurePolicy = iota

	// TolerateMissing swallows fs.ErrNotExist and continues, making removal
	// steps idempotent. Any other error still aborts.
	TolerateMissing
)

// Step is one ordered unit of pipeline work.
type Step struct {
	Name   string
	Policy FailurePolicy
	Run    func(ctx context.Context) error
}

// StepError names the step whose failure aborted a run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// MetricsSink records per-step outcomes. All methods are fire-and-forget.
type MetricsSink interface {
	StepCompleted(pipeline, step, outcome string, duration time.Duration)
}

// execute runs steps strictly in order and stops at the first
// non-tolerated failure. Remaining steps never run.
func execute(ctx context.Context, pipeline string, steps []Step, metrics MetricsSink, clock func() time.Time) error {
	for _, s := range steps {
		started := clock()
		err := s.Run(ctx)
		if err != nil && s.Policy == TolerateMissing && errors.Is(err, fs.ErrNotExist) {
			err = nil
		}

		if metrics != nil {
			outcome := "succeeded"
			if err != nil {
				outcome = "failed"
			}
			metrics.StepCompleted(pipeline, s.Name, outcome, clock().Sub(started))
		}

		if err != nil {
			return &StepError{Step: s.Name, Err: err}
		}
	}
	return nil
}
