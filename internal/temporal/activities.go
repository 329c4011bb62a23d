// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package temporal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfield/script"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/activity"

	"github.com/illinois/autograding/internal/assignment"
	"github.com/illinois/autograding/internal/feedback"
	"github.com/illinois/autograding/internal/ghstatus"
	"github.com/illinois/autograding/internal/gotest"
	"github.com/illinois/autograding/internal/grading"
	"github.com/illinois/autograding/internal/results"
	"github.com/illinois/autograding/internal/sandbox"
	"github.com/illinois/autograding/internal/telemetry"
	"github.com/illinois/autograding/internal/worklock"
	"github.com/illinois/autograding/pkg/calculator"
)

// Activities holds the dependencies grading activities run against. Optional
// fields may be nil, in which case the corresponding activity is a no-op.
type Activities struct {
	// ManifestDir is where assignment manifests live.
	ManifestDir string

	// Store persists finished reports.
	Store *results.Store

	// Publisher posts commit statuses and pull request comments.
	Publisher ghstatus.Publisher

	// Feedback writes failure hints for students.
	Feedback feedback.Generator

	// Tests runs go test against submissions on the host.
	Tests *gotest.Runner

	// Sandbox runs submission tests in a container when requested.
	Sandbox *sandbox.Runner

	// Locks serializes grading runs per submission directory.
	Locks *worklock.Registry

	// Target is the reference implementation graded when a request names no
	// submission directory. Defaults to the built-in calculator.
	Target grading.Target
}

// LoadManifest resolves and validates the assignment manifest for a run.
func (a *Activities) LoadManifest(ctx context.Context, in LoadManifestInput) (*assignment.Manifest, error) {
	logger := activity.GetLogger(ctx)

	path := in.Path
	if path == "" {
		if in.Assignment == "" {
			return nil, fmt.Errorf("manifest selection needs an assignment name or a path")
		}
		path = filepath.Join(a.ManifestDir, in.Assignment+".yaml")
	}

	logger.Info("Loading manifest", "path", path)
	m, err := assignment.Load(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// EnsureSubmission checks that the submission directory exists. Reference
// runs have no submission, so a blank directory passes.
func (a *Activities) EnsureSubmission(_ context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("submission directory not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("submission path %s is not a directory", dir)
	}
	return nil
}

// VerifyFiles fails when the submission lacks any required file.
func (a *Activities) VerifyFiles(ctx context.Context, in VerifyFilesInput) error {
	if in.Dir == "" || len(in.Patterns) == 0 {
		return nil
	}

	missing, err := assignment.MissingFiles(in.Dir, in.Patterns)
	if err != nil {
		return fmt.Errorf("failed to scan submission: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("submission is missing required files: %s", strings.Join(missing, ", "))
	}

	activity.GetLogger(ctx).Info("Required files present", "dir", in.Dir, "patterns", len(in.Patterns))
	return nil
}

// RunCommand executes one manifest step's shell command in the submission
// directory. Heartbeats are recorded so long commands stay cancellable.
func (a *Activities) RunCommand(ctx context.Context, in RunCommandInput) (string, error) {
	logger := activity.GetLogger(ctx)
	if in.Command == "" {
		return "", fmt.Errorf("step has no run command")
	}

	logger.Info("Executing step command", "dir", in.Dir, "cmd", in.Command)
	activity.RecordHeartbeat(ctx, "executing")

	shellCmd := in.Command
	if in.Dir != "" {
		shellCmd = fmt.Sprintf("cd %s && %s", in.Dir, in.Command)
	}
	p := script.Exec(fmt.Sprintf("/bin/sh -c %q", shellCmd))

	output, err := p.String()
	if err != nil {
		logger.Error("Step command failed", "error", err, "output", output)
		return output, fmt.Errorf("step command failed: %w", err)
	}
	return output, nil
}

// GradeSubmission produces the grading report. With a submission directory it
// runs the submission's tests and scores the manifest cases from the results;
// without one it evaluates the reference implementation in process.
func (a *Activities) GradeSubmission(ctx context.Context, in GradeInput) (*grading.Report, error) {
	if in.Manifest == nil {
		return nil, fmt.Errorf("grading needs a manifest")
	}

	ctx, span := telemetry.StartSpan(ctx, "activity.grading", "GradeSubmission",
		trace.WithAttributes(
			telemetry.AttrAssignment.String(in.Manifest.Assignment),
			telemetry.AttrSubmissionDir.String(in.SubmissionDir),
		),
	)
	defer span.End()

	var report *grading.Report
	var err error
	if in.SubmissionDir == "" {
		report, err = a.gradeReference(ctx, in)
	} else {
		report, err = a.gradeSubmissionTests(ctx, in)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(telemetry.ResultAttrs(
		report.Total, report.Passed, report.Failed,
		report.PointsEarned, report.PointsPossible,
	)...)
	span.SetStatus(codes.Ok, "graded")
	return report, nil
}

func (a *Activities) gradeReference(ctx context.Context, in GradeInput) (*grading.Report, error) {
	target := a.Target
	if target == nil {
		target = calculator.Add
	}
	runner := grading.NewRunnerWithOptions(grading.RunnerOptions{Parallel: in.Parallel})
	return runner.Run(ctx, in.Manifest.Suite(), target)
}

func (a *Activities) gradeSubmissionTests(ctx context.Context, in GradeInput) (*grading.Report, error) {
	logger := activity.GetLogger(ctx)
	activity.RecordHeartbeat(ctx, "running submission tests")

	if a.Locks != nil {
		holder := activity.GetInfo(ctx).WorkflowExecution.RunID
		if _, err := a.Locks.Acquire(in.SubmissionDir, holder); err != nil {
			return nil, err
		}
		defer func() {
			if err := a.Locks.Release(in.SubmissionDir, holder); err != nil {
				logger.Warn("Failed to release submission claim", "dir", in.SubmissionDir, "error", err)
			}
		}()
	}

	opts := gotest.Options{
		Timeout: time.Duration(in.Manifest.TimeoutSeconds) * time.Second,
	}

	var (
		result *gotest.Result
		err    error
	)
	if in.UseSandbox && a.Sandbox != nil {
		result, err = a.runSandboxed(ctx, in.SubmissionDir, opts)
	} else {
		result, err = a.runner().Run(ctx, in.SubmissionDir, opts)
	}
	if err != nil {
		return nil, err
	}
	if !result.Success {
		logger.Info("Submission test failures", "summary", a.runner().Summary(result))
	}

	report := grading.ScoreFromTests(in.Manifest.Suite(), result)
	logger.Info("Submission graded",
		"assignment", report.Assignment,
		"passed", report.Passed,
		"failed", report.Failed,
	)
	return report, nil
}

func (a *Activities) runSandboxed(ctx context.Context, dir string, opts gotest.Options) (*gotest.Result, error) {
	res, err := a.Sandbox.RunTests(ctx, dir, gotest.Args(opts))
	if err != nil {
		return nil, err
	}

	var runErr error
	if res.ExitCode != 0 {
		runErr = fmt.Errorf("exit status %d", res.ExitCode)
	}
	result := a.runner().Classify(res.Output, res.Duration, runErr)
	if result == nil {
		return nil, fmt.Errorf("sandboxed go test could not run: %s", strings.TrimSpace(res.Output))
	}
	return result, nil
}

func (a *Activities) runner() *gotest.Runner {
	if a.Tests != nil {
		return a.Tests
	}
	return gotest.NewRunner()
}

// SaveReport persists the report so it can be queried later.
func (a *Activities) SaveReport(ctx context.Context, report *grading.Report) error {
	if a.Store == nil {
		return nil
	}
	if err := a.Store.Save(report); err != nil {
		return fmt.Errorf("failed to persist report: %w", err)
	}
	activity.GetLogger(ctx).Info("Report saved", "run_id", report.RunID, "assignment", report.Assignment)
	return nil
}

// GenerateFeedback asks the feedback model for hints on a failed report.
func (a *Activities) GenerateFeedback(ctx context.Context, report *grading.Report) (string, error) {
	if a.Feedback == nil {
		return "", nil
	}
	return a.Feedback.Generate(ctx, report)
}

// PublishReport posts the report as a commit status.
func (a *Activities) PublishReport(ctx context.Context, in PublishInput) error {
	if a.Publisher == nil {
		return nil
	}
	return a.Publisher.PublishReport(ctx, in.SHA, in.Report)
}

// PublishState posts a bare commit state for runs that abort before grading.
func (a *Activities) PublishState(ctx context.Context, in StateInput) error {
	if a.Publisher == nil {
		return nil
	}
	return a.Publisher.SetStatus(ctx, in.SHA, in.State, in.Description)
}

// CommentReport posts the rendered report on the submission's pull request.
func (a *Activities) CommentReport(ctx context.Context, in CommentInput) error {
	if a.Publisher == nil {
		return nil
	}
	return a.Publisher.CommentReport(ctx, in.PRNumber, in.Report)
}

