// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package gotest

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const defaultRunTimeout = 5 * time.Minute

// Options configures one go test invocation over a submission.
type Options struct {
	// Pattern filters tests by name (-run). Empty runs everything.
	Pattern string `json:"pattern"`

	// Packages selects packages to test. Defaults to "./...".
	Packages string `json:"packages"`

	// Timeout is the maximum duration for the whole run.
	Timeout time.Duration `json:"timeout"`

	// Race enables the race detector.
	Race bool `json:"race"`

	// Short passes -short to skip long-running tests.
	Short bool `json:"short"`

	// FailFast stops the run at the first failure.
	FailFast bool `json:"fail_fast"`
}

// Result is the outcome of running a submission's tests.
type Result struct {
	// Success is true when the run completed and every test passed
	Success bool `json:"success"`

	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`

	Duration time.Duration `json:"duration"`

	// Output is the raw combined stdout/stderr
	Output string `json:"output"`

	// Failures are the parsed failure details
	Failures []Failure `json:"failures"`
}

// Args builds the go test argument list for the given options. Verbose
// output is always requested because the parser depends on it.
func Args(opts Options) []string {
	args := []string{"test", "-v"}
	if opts.Race {
		args = append(args, "-race")
	}
	if opts.Short {
		args = append(args, "-short")
	}
	if opts.FailFast {
		args = append(args, "-failfast")
	}
	if opts.Pattern != "" {
		args = append(args, "-run", opts.Pattern)
	}
	pkgs := opts.Packages
	if pkgs == "" {
		pkgs = "./..."
	}
	return append(args, pkgs)
}

// Runner executes go test inside a submission directory.
type Runner struct {
	parser *Parser
}

// NewRunner creates a Runner with a fresh parser.
func NewRunner() *Runner {
	return &Runner{parser: NewParser()}
}

// Run executes the submission's tests and returns parsed results. Failing
// tests are recorded in the result, not returned as an error; the error
// covers runs that could not execute at all (missing toolchain, timeout,
// empty directory).
func (r *Runner) Run(ctx context.Context, dir string, opts Options) (*Result, error) {
	if dir == "" {
		return nil, fmt.Errorf("submission directory cannot be empty")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.InfoContext(ctx, "Running submission tests",
		"dir", dir,
		"pattern", opts.Pattern,
		"timeout", timeout,
	)

	start := time.Now()
	// #nosec G204 - argument list is built from validated options
	cmd := exec.CommandContext(runCtx, "go", Args(opts)...)
	cmd.Dir = dir
	output, runErr := cmd.CombinedOutput()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("test run timed out after %s", timeout)
	}

	result := r.Classify(string(output), duration, runErr)
	if result == nil {
		return nil, fmt.Errorf("go test could not run: %w", runErr)
	}

	slog.InfoContext(ctx, "Submission tests finished",
		"total", result.Total,
		"passed", result.Passed,
		"failed", result.Failed,
		"success", result.Success,
	)
	return result, nil
}

// Classify turns raw output into a Result. A nil return means the run never
// produced test output and the exec error should surface instead. Sandboxed
// runs call this directly because the container only hands back combined
// output and an exit code.
func (r *Runner) Classify(output string, duration time.Duration, runErr error) *Result {
	parsed := r.parser.Parse(output)

	if runErr != nil && parsed.Total == 0 && !parsed.HasFailures {
		return nil
	}

	return &Result{
		Success:  runErr == nil && !parsed.HasFailures,
		Total:    parsed.Total,
		Passed:   parsed.Passed,
		Failed:   parsed.Failed,
		Duration: duration,
		Output:   output,
		Failures: parsed.Failures,
	}
}

// Summary renders the result's failures for student feedback.
func (r *Runner) Summary(result *Result) string {
	parsed := &ParseResult{
		Failures:    result.Failures,
		HasFailures: result.Failed > 0 || len(result.Failures) > 0,
		Failed:      result.Failed,
	}
	return r.parser.Summary(parsed)
}
