// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/illinois/autograding/internal/assignment"
	"github.com/illinois/autograding/internal/gotest"
	"github.com/illinois/autograding/internal/grading"
	"github.com/illinois/autograding/internal/results"
	"github.com/illinois/autograding/pkg/calculator"
)

const version = "0.1.0"

func main() {
	var (
		assignmentName = flag.String("assignment", "", "assignment name, resolved under -assignments")
		manifestPath   = flag.String("manifest", "", "explicit manifest file (overrides -assignment)")
		assignmentsDir = flag.String("assignments", "assignments", "directory holding assignment manifests")
		submissionDir  = flag.String("submission", "", "grade this submission's tests instead of the reference implementation")
		storePath      = flag.String("store", "", "persist the report to a results store at this path")
		parallel       = flag.Bool("parallel", false, "evaluate cases concurrently")
		calibrate      = flag.Bool("calibrate", false, "run the built-in calibration suite and verify classification")
		listManifests  = flag.Bool("list", false, "list the assignments under -assignments and exit")
		showVersion    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	setupLogging()

	if *showVersion {
		fmt.Printf("autograde v%s\n", version)
		return
	}

	if *listManifests {
		if err := listAssignments(*assignmentsDir); err != nil {
			slog.Error("Failed to list assignments", "dir", *assignmentsDir, "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *calibrate {
		report, err := runCalibration(ctx, *parallel)
		if err != nil {
			slog.Error("Calibration failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(report.Render())
		fmt.Println("Calibration verified: every deliberate mismatch was classified as a failure.")
		return
	}

	if *assignmentName == "" && *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "either -assignment or -manifest is required")
		flag.Usage()
		os.Exit(2)
	}

	report, err := runGrade(ctx, gradeOptions{
		Assignment:     *assignmentName,
		ManifestPath:   *manifestPath,
		AssignmentsDir: *assignmentsDir,
		SubmissionDir:  *submissionDir,
		StorePath:      *storePath,
		Parallel:       *parallel,
	})
	if err != nil {
		slog.Error("Grading failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(report.Render())
	if err := report.Err(); err != nil {
		slog.Error("Assignment not passed", "error", err)
		os.Exit(1)
	}
}

type gradeOptions struct {
	Assignment     string
	ManifestPath   string
	AssignmentsDir string
	SubmissionDir  string
	StorePath      string
	Parallel       bool
}

func runGrade(ctx context.Context, opts gradeOptions) (*grading.Report, error) {
	path := opts.ManifestPath
	if path == "" {
		path = filepath.Join(opts.AssignmentsDir, opts.Assignment+".yaml")
	}

	manifest, err := assignment.Load(path)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	var report *grading.Report
	if opts.SubmissionDir != "" {
		report, err = gradeSubmission(ctx, manifest, opts.SubmissionDir)
	} else {
		runner := grading.NewRunnerWithOptions(grading.RunnerOptions{Parallel: opts.Parallel})
		report, err = runner.Run(ctx, manifest.Suite(), calculator.Add)
	}
	if err != nil {
		return nil, err
	}

	if opts.StorePath != "" {
		if err := persistReport(opts.StorePath, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func gradeSubmission(ctx context.Context, manifest *assignment.Manifest, dir string) (*grading.Report, error) {
	missing, err := assignment.MissingFiles(dir, manifest.RequiredFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("submission is missing required files: %s", strings.Join(missing, ", "))
	}

	result, err := gotest.NewRunner().Run(ctx, dir, gotest.Options{
		Timeout: time.Duration(manifest.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return grading.ScoreFromTests(manifest.Suite(), result), nil
}

func listAssignments(dir string) error {
	manifests, err := assignment.LoadDir(dir)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Printf("no assignments found in %s\n", dir)
		return nil
	}

	for _, m := range manifests {
		fmt.Printf("%-16s %d cases, %d points", m.Assignment, len(m.Cases), m.Suite().PointsPossible())
		if m.Description != "" {
			fmt.Printf("  - %s", m.Description)
		}
		fmt.Println()
	}
	return nil
}

func runCalibration(ctx context.Context, parallel bool) (*grading.Report, error) {
	runner := grading.NewRunnerWithOptions(grading.RunnerOptions{Parallel: parallel})
	report, err := runner.Run(ctx, grading.CalibrationSuite(), calculator.Add)
	if err != nil {
		return nil, err
	}
	if err := grading.VerifyCalibration(report); err != nil {
		return nil, err
	}
	return report, nil
}

func persistReport(path string, report *grading.Report) error {
	store, err := results.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(report); err != nil {
		return err
	}
	slog.Info("Report saved", "run_id", report.RunID, "store", path)
	return nil
}

func setupLogging() {
	logFormat := os.Getenv("LOG_FORMAT")
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	slog.SetDefault(slog.New(handler))
}
