// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package grading

import (
	"fmt"
	"strings"
)

const maxSummaryFailures = 5

// Summary returns a one-line result suitable for logs and commit statuses.
func (r *Report) Summary() string {
	var summary strings.Builder

	if r.IsPassing() {
		summary.WriteString(fmt.Sprintf("PASSED: all %d cases passed", r.Total))
	} else {
		summary.WriteString(fmt.Sprintf("FAILED: %d/%d cases failed", r.Failed, r.Total))
	}
	summary.WriteString(fmt.Sprintf(" (%.2fs)", r.Duration.Seconds()))

	failed := r.FailedNames()
	if len(failed) > 0 && len(failed) <= maxSummaryFailures {
		summary.WriteString(fmt.Sprintf("\nFailed cases: %s", strings.Join(failed, ", ")))
	} else if len(failed) > maxSummaryFailures {
		summary.WriteString(fmt.Sprintf("\nFailed cases (%d): %s, ...",
			len(failed), strings.Join(failed[:maxSummaryFailures], ", ")))
	}

	return summary.String()
}

// Render returns the full human-readable report: one line per case, actual
// vs expected shown for failures, then the totals.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== Grading Report: %s ===\n\n", r.Assignment))

	for _, o := range r.Outcomes {
		if o.Passed {
			b.WriteString(fmt.Sprintf("  ✓ %s\n", o.Case.Name))
		} else {
			b.WriteString(fmt.Sprintf("  ✗ %s\n", o.Case.Name))
			b.WriteString(fmt.Sprintf("      %s\n", o.Message))
		}
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Cases:     %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total))
	b.WriteString(fmt.Sprintf("Points:    %d/%d\n", r.PointsEarned, r.PointsPossible))
	b.WriteString(fmt.Sprintf("Pass rate: %.1f%%\n", r.PassRate()))
	b.WriteString(fmt.Sprintf("Duration:  %.2fs\n", r.Duration.Seconds()))

	b.WriteString("\nVERDICT: ")
	if r.IsPassing() {
		b.WriteString("✓ All cases passed.\n")
	} else {
		b.WriteString(fmt.Sprintf("✗ %d case(s) failed. Actual vs expected values are shown above.\n", r.Failed))
	}

	return b.String()
}
