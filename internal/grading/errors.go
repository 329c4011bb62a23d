// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

import (
	"fmt"
	"strings"
)

// MismatchError is the harness's single failure kind: the actual result of a
// case differed from its expected value.
type MismatchError struct {
	Operation string
	Case      string
	A         int
	B         int
	Got       int
	Want      int
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s(%d, %d) = %d, want %d", e.Case, e.Operation, e.A, e.B, e.Got, e.Want)
}

// SuiteFailureError aggregates a run's mismatches into one terminal error
// for callers that need an error-shaped verdict, such as the CLI exit path.
type SuiteFailureError struct {
	Assignment string
	Failed     int
	Total      int
	Cases      []string
}

// Error implements the error interface.
func (e *SuiteFailureError) Error() string {
	return fmt.Sprintf("%s: %d/%d cases failed: %s",
		e.Assignment, e.Failed, e.Total, strings.Join(e.Cases, ", "))
}

// Err returns nil for a passing report, or a *SuiteFailureError naming the
// failed cases.
func (r *Report) Err() error {
	if r.IsPassing() {
		return nil
	}
	return &SuiteFailureError{
		Assignment: r.Assignment,
		Failed:     r.Failed,
		Total:      r.Total,
		Cases:      r.FailedNames(),
	}
}

// CalibrationError reports a harness that misclassified calibration cases.
type CalibrationError struct {
	// Missed are cases with wrong expectations that the runner marked passed.
	Missed []string
	// Unexpected are cases with correct expectations that the runner marked failed.
	Unexpected []string
}

// Error implements the error interface.
func (e *CalibrationError) Error() string {
	var parts []string
	if len(e.Missed) > 0 {
		parts = append(parts, fmt.Sprintf("mismatches not detected: %s", strings.Join(e.Missed, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("correct cases marked failed: %s", strings.Join(e.Unexpected, ", ")))
	}
	return "calibration failed: " + strings.Join(parts, "; ")
}
