// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Activity timing and retry defaults. Grading runs student code, so it gets a
// single attempt; preparation steps and publishing are safe to retry.
const (
	stepStartToClose  = 10 * time.Minute
	stepHeartbeat     = time.Minute
	stepMaxAttempts   = 3
	gradeStartToClose = 15 * time.Minute
	gradeHeartbeat    = 2 * time.Minute
	publishTimeout    = time.Minute
	publishAttempts   = 5

	retryInitialInterval = time.Second
	retryBackoff         = 2.0
	retryMaxInterval     = time.Minute
)

// StepActivityOptions configures preparation steps: manifest loading,
// submission checks, and shell commands.
func StepActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: stepStartToClose,
		HeartbeatTimeout:    stepHeartbeat,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    retryInitialInterval,
			BackoffCoefficient: retryBackoff,
			MaximumInterval:    retryMaxInterval,
			MaximumAttempts:    stepMaxAttempts,
		},
	}
}

// GradeActivityOptions configures the grading activity. A single attempt
// only: re-running submission code after a partial failure could double
// observable side effects and would hide flaky submissions.
func GradeActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: gradeStartToClose,
		HeartbeatTimeout:    gradeHeartbeat,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// PublishActivityOptions configures persistence and notification calls,
// which are idempotent and worth retrying through transient API failures.
func PublishActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: publishTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    retryInitialInterval,
			BackoffCoefficient: retryBackoff,
			MaximumInterval:    retryMaxInterval,
			MaximumAttempts:    publishAttempts,
		},
	}
}

// WithStepOptions returns a context carrying step activity options.
func WithStepOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, StepActivityOptions())
}

// WithGradeOptions returns a context carrying grading activity options.
func WithGradeOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, GradeActivityOptions())
}

// WithPublishOptions returns a context carrying publish activity options.
func WithPublishOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, PublishActivityOptions())
}

// NewDetachedContext returns a context that survives cancellation of the
// parent, so a failed run can still report its state upstream. The caller
// must invoke the cancel function when done.
func NewDetachedContext(ctx workflow.Context) (workflow.Context, workflow.CancelFunc) {
	detached, cancel := workflow.NewDisconnectedContext(ctx)
	return WithPublishOptions(detached), cancel
}
