// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package temporal

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/workflow"

	"github.com/illinois/autograding/internal/assignment"
	"github.com/illinois/autograding/internal/ghstatus"
	"github.com/illinois/autograding/internal/grading"
	"github.com/illinois/autograding/internal/steps"
)

// GradeWorkflow runs one grading pipeline: load the manifest, walk the
// preparation step graph, grade, persist the report, and notify.
func GradeWorkflow(ctx workflow.Context, input GradeRequest) (*GradeResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Grade workflow started",
		"assignment", input.Assignment,
		"submission", input.SubmissionDir,
	)

	if input.Assignment == "" && input.ManifestPath == "" {
		return nil, fmt.Errorf("grade request names no assignment or manifest path")
	}

	a := &Activities{}

	var manifest *assignment.Manifest
	stepCtx := WithStepOptions(ctx)
	err := workflow.ExecuteActivity(stepCtx, a.LoadManifest, LoadManifestInput{
		Assignment: input.Assignment,
		Path:       input.ManifestPath,
	}).Get(ctx, &manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	if err := runSteps(stepCtx, a, input, manifest); err != nil {
		reportError(ctx, a, input.CommitSHA, err)
		return nil, err
	}

	var report *grading.Report
	gradeCtx := WithGradeOptions(ctx)
	err = workflow.ExecuteActivity(gradeCtx, a.GradeSubmission, GradeInput{
		Manifest:      manifest,
		SubmissionDir: input.SubmissionDir,
		Parallel:      input.Parallel,
		UseSandbox:    input.UseSandbox,
	}).Get(ctx, &report)
	if err != nil {
		reportError(ctx, a, input.CommitSHA, err)
		return nil, fmt.Errorf("grading failed: %w", err)
	}

	publishCtx := WithPublishOptions(ctx)
	if err := workflow.ExecuteActivity(publishCtx, a.SaveReport, report).Get(ctx, nil); err != nil {
		reportError(ctx, a, input.CommitSHA, err)
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	result := &GradeResult{Report: *report}

	// Feedback is best effort: a hint generator outage must not lose a
	// graded run.
	if !report.IsPassing() {
		var hints string
		if err := workflow.ExecuteActivity(publishCtx, a.GenerateFeedback, report).Get(ctx, &hints); err != nil {
			logger.Warn("Feedback generation failed", "error", err)
		} else {
			result.Feedback = hints
		}
	}

	if input.CommitSHA != "" {
		err := workflow.ExecuteActivity(publishCtx, a.PublishReport, PublishInput{
			SHA:    input.CommitSHA,
			Report: report,
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("Commit status publish failed", "sha", input.CommitSHA, "error", err)
		}
	}

	if input.PRNumber > 0 && !report.IsPassing() {
		err := workflow.ExecuteActivity(publishCtx, a.CommentReport, CommentInput{
			PRNumber: input.PRNumber,
			Report:   report,
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("Pull request comment failed", "pr", input.PRNumber, "error", err)
		}
	}

	logger.Info("Grade workflow complete",
		"run_id", report.RunID,
		"passing", report.IsPassing(),
		"points", report.PointsEarned,
	)
	return result, nil
}

// runSteps executes the manifest's preparation steps, honoring dependency
// order and launching independent steps in parallel.
func runSteps(ctx workflow.Context, a *Activities, input GradeRequest, manifest *assignment.Manifest) error {
	logger := workflow.GetLogger(ctx)

	specs := manifest.Steps
	if len(specs) == 0 {
		specs = steps.DefaultSteps()
	}
	plan, err := steps.BuildPlan(specs)
	if err != nil {
		return err
	}
	logger.Info("Step plan ready", "order", plan.Order)

	completed := make(map[string]bool)
	started := make(map[string]bool)
	pending := make(map[string]workflow.Future)
	failed := make([]string, 0)

	for len(completed) < len(plan.Order) {
		for _, name := range plan.Ready(completed, started) {
			spec, _ := plan.Step(name)
			logger.Info("Starting step", "name", name)
			started[name] = true
			pending[name] = startStep(ctx, a, input, manifest, spec)
		}

		selector := workflow.NewSelector(ctx)
		for name := range pending {
			stepName := name
			future := pending[stepName]

			selector.AddFuture(future, func(f workflow.Future) {
				var output string
				if err := f.Get(ctx, &output); err != nil {
					logger.Error("Step failed", "name", stepName, "error", err)
					failed = append(failed, stepName)
				} else {
					logger.Info("Step completed", "name", stepName)
					completed[stepName] = true
				}
				delete(pending, stepName)
			})
		}

		if len(pending) > 0 {
			selector.Select(ctx)

			if len(failed) > 0 {
				return fmt.Errorf("steps failed: %v", failed)
			}
		} else if len(completed) < len(plan.Order) {
			return fmt.Errorf("step graph stalled - no steps runnable")
		}
	}

	return nil
}

// startStep dispatches a step to its activity. Steps with a run command
// execute in a shell; bare names must be a known built-in.
func startStep(ctx workflow.Context, a *Activities, input GradeRequest, manifest *assignment.Manifest, spec assignment.StepSpec) workflow.Future {
	switch {
	case spec.Run != "":
		return workflow.ExecuteActivity(ctx, a.RunCommand, RunCommandInput{
			Dir:     input.SubmissionDir,
			Command: spec.Run,
		})
	case spec.Name == StepCheckout:
		return workflow.ExecuteActivity(ctx, a.EnsureSubmission, input.SubmissionDir)
	case spec.Name == StepVerify:
		return workflow.ExecuteActivity(ctx, a.VerifyFiles, VerifyFilesInput{
			Dir:      input.SubmissionDir,
			Patterns: manifest.RequiredFiles,
		})
	default:
		future, settable := workflow.NewFuture(ctx)
		settable.SetError(fmt.Errorf("step %q has neither a run command nor built-in behavior", spec.Name))
		return future
	}
}

// reportError publishes an error commit state for a run that died before a
// report existed. It uses a disconnected context so the status still lands
// when the workflow itself was cancelled.
func reportError(ctx workflow.Context, a *Activities, sha string, cause error) {
	if sha == "" {
		return
	}

	detached, cancel := NewDetachedContext(ctx)
	defer cancel()

	description := cause.Error()
	if i := strings.IndexByte(description, '\n'); i >= 0 {
		description = description[:i]
	}
	in := StateInput{
		SHA:         sha,
		State:       ghstatus.StateError,
		Description: description,
	}
	if err := workflow.ExecuteActivity(detached, a.PublishState, in).Get(detached, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Error state publish failed", "sha", sha, "error", err)
	}
}
