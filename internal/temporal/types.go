// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package temporal

import (
	"github.com/illinois/autograding/internal/assignment"
	"github.com/illinois/autograding/internal/grading"
)

// Step names with built-in behavior. Any other step must carry a run command.
const (
	StepCheckout = "checkout"
	StepVerify   = "verify"
)

// GradeRequest is the input to GradeWorkflow.
type GradeRequest struct {
	// Assignment names the manifest to load from the configured manifest
	// directory. Ignored when ManifestPath is set.
	Assignment string `json:"assignment"`

	// ManifestPath points at an explicit manifest file.
	ManifestPath string `json:"manifest_path,omitempty"`

	// SubmissionDir is the student submission to grade. When empty the run
	// grades the reference implementation instead, which is how manifests
	// are validated and the harness calibrated.
	SubmissionDir string `json:"submission_dir,omitempty"`

	// CommitSHA, when set, receives a commit status with the outcome.
	CommitSHA string `json:"commit_sha,omitempty"`

	// PRNumber, when positive, receives a report comment on failure.
	PRNumber int `json:"pr_number,omitempty"`

	// Parallel evaluates suite cases concurrently.
	Parallel bool `json:"parallel,omitempty"`

	// UseSandbox runs submission tests inside a container.
	UseSandbox bool `json:"use_sandbox,omitempty"`
}

// GradeResult is the output of GradeWorkflow.
type GradeResult struct {
	Report   grading.Report `json:"report"`
	Feedback string         `json:"feedback,omitempty"`
}

// LoadManifestInput selects the manifest for a run.
type LoadManifestInput struct {
	Assignment string `json:"assignment"`
	Path       string `json:"path,omitempty"`
}

// VerifyFilesInput checks a submission for required files.
type VerifyFilesInput struct {
	Dir      string   `json:"dir"`
	Patterns []string `json:"patterns"`
}

// RunCommandInput executes one shell step in the submission directory.
type RunCommandInput struct {
	Dir     string `json:"dir"`
	Command string `json:"command"`
}

// GradeInput carries everything the grading activity needs.
type GradeInput struct {
	Manifest      *assignment.Manifest `json:"manifest"`
	SubmissionDir string               `json:"submission_dir,omitempty"`
	Parallel      bool                 `json:"parallel,omitempty"`
	UseSandbox    bool                 `json:"use_sandbox,omitempty"`
}

// PublishInput posts a finished report as a commit status.
type PublishInput struct {
	SHA    string          `json:"sha"`
	Report *grading.Report `json:"report"`
}

// StateInput posts a bare commit state, used when a run aborts before a
// report exists.
type StateInput struct {
	SHA         string `json:"sha"`
	State       string `json:"state"`
	Description string `json:"description"`
}

// CommentInput posts the rendered report on a pull request.
type CommentInput struct {
	PRNumber int             `json:"pr_number"`
	Report   *grading.Report `json:"report"`
}
