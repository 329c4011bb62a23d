// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerOptions configures suite evaluation.
type RunnerOptions struct {
	// Parallel evaluates cases concurrently. Cases are independent and
	// stateless, so outcomes are identical to a sequential run; the report
	// keeps suite order either way.
	Parallel bool
}

// Runner evaluates every case of a suite against a target function.
type Runner struct {
	opts RunnerOptions
}

// NewRunner creates a Runner with sequential evaluation.
func NewRunner() *Runner {
	return &Runner{}
}

// NewRunnerWithOptions creates a Runner with the given options.
func NewRunnerWithOptions(opts RunnerOptions) *Runner {
	return &Runner{opts: opts}
}

// Run evaluates the suite and returns the report. The returned error covers
// invalid input and context cancellation only; failed cases are recorded in
// the report, never returned as an error.
func (r *Runner) Run(ctx context.Context, suite Suite, target Target) (*Report, error) {
	if target == nil {
		return nil, fmt.Errorf("grading target cannot be nil")
	}
	if len(suite.Cases) == 0 {
		return nil, fmt.Errorf("suite %q has no cases", suite.Assignment)
	}

	slog.InfoContext(ctx, "Starting grading run",
		"assignment", suite.Assignment,
		"cases", len(suite.Cases),
		"parallel", r.opts.Parallel,
	)

	start := time.Now()
	outcomes := make([]Outcome, len(suite.Cases))

	if r.opts.Parallel {
		var wg sync.WaitGroup
		for i, c := range suite.Cases {
			wg.Add(1)
			go func(i int, c Case) {
				defer wg.Done()
				outcomes[i] = evaluateCase(suite.OperationName(), c, target)
			}(i, c)
		}
		wg.Wait()
	} else {
		for i, c := range suite.Cases {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("grading run cancelled: %w", err)
			}
			outcomes[i] = evaluateCase(suite.OperationName(), c, target)
		}
	}

	report := BuildReport(suite, outcomes, start)

	for _, o := range report.Outcomes {
		if !o.Passed {
			slog.WarnContext(ctx, "Case failed",
				"assignment", suite.Assignment,
				"case", o.Case.Name,
				"got", o.Got,
				"want", o.Case.Want,
			)
		}
	}

	slog.InfoContext(ctx, "Grading run complete",
		"assignment", suite.Assignment,
		"run_id", report.RunID,
		"passed", report.Passed,
		"failed", report.Failed,
		"points", report.PointsEarned,
	)

	return report, nil
}

// evaluateCase invokes the target with the case operands and classifies the
// result by exact equality.
func evaluateCase(operation string, c Case, target Target) Outcome {
	caseStart := time.Now()
	got := target(c.A, c.B)
	outcome := Outcome{
		Case:     c,
		Got:      got,
		Passed:   got == c.Want,
		Duration: time.Since(caseStart),
	}
	if !outcome.Passed {
		mismatch := &MismatchError{
			Operation: operation,
			Case:      c.Name,
			A:         c.A,
			B:         c.B,
			Got:       got,
			Want:      c.Want,
		}
		outcome.Message = mismatch.Error()
	}
	return outcome
}

// BuildReport assembles a Report from per-case outcomes, assigning a fresh run
// ID and tallying pass, fail, and point totals.
func BuildReport(suite Suite, outcomes []Outcome, start time.Time) *Report {
	report := &Report{
		RunID:          uuid.New().String(),
		Assignment:     suite.Assignment,
		StartedAt:      start,
		Duration:       time.Since(start),
		Outcomes:       outcomes,
		Total:          len(outcomes),
		PointsPossible: suite.PointsPossible(),
	}
	for _, o := range outcomes {
		if o.Passed {
			report.Passed++
			report.PointsEarned += o.Case.Points
		} else {
			report.Failed++
		}
	}
	return report
}
